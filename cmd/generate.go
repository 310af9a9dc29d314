package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"blog_backend/generator"
)

var (
	genKeywords string
	genTone     string
	genJSON     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate one article with the configured language model",
	Long: `Generate runs a single AI generation for the topic and prints the result.
Nothing is saved.

Examples:
  blog generate "IELTS Writing Task 2 opinion essays"
  blog generate "Speaking Part 2 cue cards" --tone friendly --keywords "fluency, band 7"
  blog generate "Reading: matching headings" --json > post.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genKeywords, "keywords", "", "preferred keywords")
	generateCmd.Flags().StringVar(&genTone, "tone", "expert", "tone: academic, friendly or expert")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "print the generated post as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level(), true)

	agent, err := newAgent(cmd.Context(), cfg, &logger)
	if err != nil {
		return err
	}

	var (
		titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
		labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")).Bold(true)
		mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)
		errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
		tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Padding(0, 1).Border(lipgloss.RoundedBorder())
	)

	out := cmd.OutOrStdout()
	if !genJSON {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("→ Generating with %s (%s)...", cfg.LLM.Provider, cfg.LLM.Model)))
	}

	post, err := agent.Generate(cmd.Context(), generator.Request{
		Topic:    args[0],
		Keywords: genKeywords,
		Tone:     generator.Tone(genTone),
	})
	if err != nil {
		var gerr *generator.Error
		if errors.As(err, &gerr) {
			logger.Debug().Err(gerr.Err).Str("kind", gerr.Kind.Error()).Msg("generation failed")
		}
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if genJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(post)
	}

	tags := make([]string, 0, len(post.Tags))
	for _, t := range post.Tags {
		tags = append(tags, tagStyle.Render(t))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(post.Title))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("SEO title:"), post.SEOTitle)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Description:"), post.SEODescription)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Keywords:"), post.SEOKeywords)
	fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Words:"), generator.WordCount(post.Content))
	fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Center, tags...))
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimSpace(post.Content))
	return nil
}
