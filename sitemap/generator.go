package sitemap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"blog_backend/store"
)

const FileName = "sitemap.xml"

// PostSource lists the posts that belong in the sitemap.
type PostSource interface {
	IndexablePosts(ctx context.Context) ([]store.Post, error)
}

// Generator combines frontend routes and indexable posts into a sitemap.
type Generator struct {
	Domain     string
	AppDir     string
	MediaRoot  string
	StaticRoot string
	Posts      PostSource
	log        *zerolog.Logger
}

func NewGenerator(domain, appDir, mediaRoot, staticRoot string, posts PostSource, logger *zerolog.Logger) *Generator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Generator{
		Domain:     domain,
		AppDir:     appDir,
		MediaRoot:  mediaRoot,
		StaticRoot: staticRoot,
		Posts:      posts,
		log:        logger,
	}
}

// Entries returns the static routes followed by one entry per indexable post.
func (g *Generator) Entries(ctx context.Context) ([]Entry, error) {
	routes, err := StaticRoutes(g.AppDir)
	if err != nil {
		return nil, fmt.Errorf("collect routes: %w", err)
	}
	entries := make([]Entry, 0, len(routes))
	for _, r := range routes {
		entries = append(entries, Entry{Path: r})
	}
	if g.Posts != nil {
		posts, err := g.Posts.IndexablePosts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load posts: %w", err)
		}
		for _, p := range posts {
			if p.Slug == "" {
				continue
			}
			entries = append(entries, Entry{Path: "/posts/" + p.Slug, LastMod: p.UpdatedAt})
		}
	}
	return entries, nil
}

func (g *Generator) Build(ctx context.Context) ([]byte, error) {
	entries, err := g.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return BuildXML(g.Domain, entries)
}

// Write builds the sitemap and writes it to output, or to
// <MediaRoot>/sitemap.xml when output is empty. A copy goes to StaticRoot
// when that directory exists. It returns the path written.
func (g *Generator) Write(ctx context.Context, output string) (string, error) {
	if output == "" {
		output = filepath.Join(g.MediaRoot, FileName)
	}
	data, err := g.Build(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", err
	}

	if g.StaticRoot != "" {
		if fi, err := os.Stat(g.StaticRoot); err == nil && fi.IsDir() {
			if err := os.WriteFile(filepath.Join(g.StaticRoot, FileName), data, 0o644); err != nil {
				g.log.Warn().Err(err).Str("static_root", g.StaticRoot).Msg("mirror sitemap failed")
			}
		}
	}
	return output, nil
}
