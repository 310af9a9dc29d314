package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"blog_backend/publisher"
)

var (
	pubTitle       string
	pubCategory    uint
	pubSEOTitle    string
	pubDescription string
	pubKeywords    string
	pubTags        []string
	pubNoIndex     bool
	pubBaseURL     string
)

var publishCmd = &cobra.Command{
	Use:   "publish [file]",
	Short: "Publish a markdown or html file as a post through the REST API",
	Long: `Publish logs in with PUBLISHER_USERNAME / PUBLISHER_PASSWORD, converts a
markdown file to HTML and creates the post. A leading "# " heading becomes
the title unless --title is given.

Examples:
  blog publish posts/opinion-essay.md --category 1 --tags IELTS,Writing
  blog publish draft.html --title "SAT Math with Desmos" --noindex`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&pubTitle, "title", "", "post title")
	publishCmd.Flags().UintVar(&pubCategory, "category", 0, "category id")
	publishCmd.Flags().StringVar(&pubSEOTitle, "seo-title", "", "seo title")
	publishCmd.Flags().StringVar(&pubDescription, "description", "", "seo description (derived from the text when empty)")
	publishCmd.Flags().StringVar(&pubKeywords, "keywords", "", "seo keywords")
	publishCmd.Flags().StringSliceVar(&pubTags, "tags", nil, "comma separated tags")
	publishCmd.Flags().BoolVar(&pubNoIndex, "noindex", false, "keep the post out of the sitemap")
	publishCmd.Flags().StringVar(&pubBaseURL, "base-url", "", "API base url (overrides PUBLISHER_BASE_URL)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level(), true)

	pc := publisher.Config{
		BaseURL:  cfg.Publisher.BaseURL,
		Username: cfg.Publisher.Username,
		Password: cfg.Publisher.Password,
	}
	if pubBaseURL != "" {
		pc.BaseURL = pubBaseURL
	}

	p, err := publisher.New(cmd.Context(), pc, nil, &logger)
	if err != nil {
		return err
	}
	slug, err := p.Publish(cmd.Context(), publisher.PublishParams{
		Path:           args[0],
		Title:          pubTitle,
		Category:       pubCategory,
		SEOTitle:       pubSEOTitle,
		SEODescription: pubDescription,
		SEOKeywords:    pubKeywords,
		Tags:           pubTags,
		NoIndex:        pubNoIndex,
	})
	if err != nil {
		return err
	}
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	fmt.Fprintln(cmd.OutOrStdout(), ok.Render("✓ Published: ")+slug)
	return nil
}
