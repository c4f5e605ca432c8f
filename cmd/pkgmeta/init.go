package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/pkgmeta/internal/config"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func runInit(cmd *cobra.Command, args []string) error {
	if path := config.Used(projectDir); path != "" {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default()
	if base, err := filepath.Abs(projectDir); err == nil && identRe.MatchString(filepath.Base(base)) {
		cfg.Name = filepath.Base(base)
	}
	version := "0.1.0"

	if !assumeYes {
		questions := []*survey.Question{
			{
				Name:     "name",
				Prompt:   &survey.Input{Message: "Package name:", Default: cfg.Name},
				Validate: survey.ComposeValidators(survey.Required, validateIdent),
			},
			{
				Name:     "version",
				Prompt:   &survey.Input{Message: "Initial version:", Default: version},
				Validate: survey.Required,
			},
			{
				Name:   "author",
				Prompt: &survey.Input{Message: "Author:", Default: cfg.Author},
			},
			{
				Name:   "email",
				Prompt: &survey.Input{Message: "Author email:", Default: cfg.AuthorEmail},
			},
			{
				Name:   "url",
				Prompt: &survey.Input{Message: "Home page:", Default: cfg.URL},
			},
			{
				Name: "description",
				Prompt: &survey.Input{
					Message: "Summary (optional):",
					Help:    "Leave empty to use the first line of the README",
				},
			},
			{
				Name:   "pythonRequires",
				Prompt: &survey.Input{Message: "Supported Python versions:", Default: cfg.PythonRequires},
			},
		}

		answers := struct {
			Name           string
			Version        string
			Author         string
			Email          string
			URL            string
			Description    string
			PythonRequires string
		}{}

		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		cfg.Name = answers.Name
		version = answers.Version
		cfg.Author = answers.Author
		cfg.AuthorEmail = answers.Email
		cfg.URL = answers.URL
		cfg.Description = answers.Description
		cfg.PythonRequires = answers.PythonRequires
	}

	cfg.PackageData = map[string][]string{cfg.Name: {"py.typed"}}
	cfg.Inputs.VersionFile = cfg.Name + "/version.py"
	if err := cfg.Validate(); err != nil {
		return err
	}

	created, err := scaffold(projectDir, cfg, version)
	if err != nil {
		return err
	}
	for _, path := range created {
		printSuccess(cmd.OutOrStdout(), "Created %s", path)
	}
	return nil
}

func validateIdent(ans interface{}) error {
	s, ok := ans.(string)
	if !ok || !identRe.MatchString(s) {
		return errors.New("package name must be a valid Python identifier")
	}
	return nil
}

// scaffold writes the config file and a minimal package layout into dir.
// Existing files are left alone. It returns the paths it created.
func scaffold(dir string, cfg *config.Config, version string) ([]string, error) {
	var created []string

	cfgPath := filepath.Join(dir, config.FileName+".yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Write(cfgPath, cfg); err != nil {
			return created, err
		}
		created = append(created, cfgPath)
	}

	files := []struct {
		name    string
		content string
	}{
		{cfg.Inputs.Readme, fmt.Sprintf("# %s\n", cfg.Name)},
		{cfg.Inputs.Requirements, ""},
		{filepath.Join(cfg.Name, cfg.Inputs.ModuleMarker), ""},
		{filepath.FromSlash(cfg.Inputs.VersionFile), fmt.Sprintf("%s = \"%s\"\n", cfg.Inputs.VersionSymbol, version)},
		{filepath.Join(cfg.Name, "py.typed"), ""},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return created, fmt.Errorf("creating directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return created, fmt.Errorf("writing %s: %w", f.name, err)
		}
		created = append(created, path)
	}

	return created, nil
}
