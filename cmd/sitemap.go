package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"blog_backend/sitemap"
	"blog_backend/store"
)

var (
	sitemapDomain string
	sitemapOutput string
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Write sitemap.xml from the frontend routes and indexable posts",
	Long: `Sitemap writes <media_root>/sitemap.xml (or --output) and mirrors it into
static_root when that directory exists.`,
	Args: cobra.NoArgs,
	RunE: runSitemap,
}

func init() {
	rootCmd.AddCommand(sitemapCmd)
	sitemapCmd.Flags().StringVar(&sitemapDomain, "domain", "", "site url used in <loc> (default SITE_URL)")
	sitemapCmd.Flags().StringVar(&sitemapOutput, "output", "", "output file (default <media_root>/sitemap.xml)")
}

func runSitemap(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level(), true)

	domain := cfg.SiteURL
	if sitemapDomain != "" {
		domain = sitemapDomain
	}

	st, err := store.Open(cfg.DatabaseDSN, &logger)
	if err != nil {
		return err
	}
	defer st.Close()

	gen := sitemap.NewGenerator(domain, cfg.FrontendAppDir, cfg.MediaRoot, cfg.StaticRoot, st, &logger)
	path, err := gen.Write(cmd.Context(), sitemapOutput)
	if err != nil {
		return err
	}
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	fmt.Fprintln(cmd.OutOrStdout(), ok.Render("✓ Sitemap written to "+path))
	return nil
}
