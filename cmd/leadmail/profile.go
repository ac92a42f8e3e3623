package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadmail/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the sender profile used in drafted emails",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current profile",
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields",
	Long:  "Updates only the fields passed as flags. Pass an empty value (--figma \"\") to clear a field.",
	RunE:  runProfileSet,
}

var profileClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored profile",
	RunE:  runProfileClear,
}

// profileFlags maps flag names to the profile field they edit.
var profileFlags = []struct {
	name  string
	usage string
	field func(*model.Profile) *string
}{
	{"name", "your full name", func(p *model.Profile) *string { return &p.Name }},
	{"email", "your email address", func(p *model.Profile) *string { return &p.Email }},
	{"phone", "your phone number", func(p *model.Profile) *string { return &p.Phone }},
	{"portfolio", "portfolio URL", func(p *model.Profile) *string { return &p.Portfolio }},
	{"linkedin", "LinkedIn profile URL", func(p *model.Profile) *string { return &p.LinkedIn }},
	{"figma", "Figma profile URL", func(p *model.Profile) *string { return &p.Figma }},
	{"resume", "resume link", func(p *model.Profile) *string { return &p.ResumeLink }},
	{"bio", "one-line bio, e.g. \"a recent design graduate\"", func(p *model.Profile) *string { return &p.Bio }},
}

func init() {
	for _, f := range profileFlags {
		profileSetCmd.Flags().String(f.name, "", f.usage)
	}
	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profileClearCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	p, err := resolveProfile(sqlStore, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load profile: %v\n", err)
		os.Exit(1)
	}
	if p.IsZero() {
		fmt.Println("No profile set. Use `leadmail profile set --name ... --email ...`.")
		return nil
	}

	for _, f := range profileFlags {
		value := *f.field(&p)
		if value == "" {
			value = "-"
		}
		fmt.Printf("%-10s %s\n", f.name+":", value)
	}
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	p, err := resolveProfile(sqlStore, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load profile: %v\n", err)
		os.Exit(1)
	}

	changed := 0
	for _, f := range profileFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		value, _ := cmd.Flags().GetString(f.name)
		*f.field(&p) = value
		changed++
	}
	if changed == 0 {
		return fmt.Errorf("no fields given; see `leadmail profile set --help`")
	}

	if err := sqlStore.SaveProfile(p); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save profile: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Profile updated (%d field(s)).\n", changed)
	return nil
}

func runProfileClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	if err := sqlStore.SaveProfile(model.Profile{}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clear profile: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Profile cleared.")
	return nil
}
