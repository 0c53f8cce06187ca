package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/profilegen/internal/export"
	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

type generateFlags struct {
	website    string
	language   string
	sections   []string
	sequential bool
	out        string
	files      []string
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a profile and print or save it",
		Long: `Generate a profile for a company or entity.

Examples:
  profilegen generate Acme --website acme.com
  profilegen generate Acme --section company_values --section leadership --sequential
  profilegen generate Acme --language french --out acme.md
  profilegen generate Acme --file report.pdf --out acme.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.website, "website", "", "website of the subject")
	cmd.Flags().StringVar(&f.language, "language", "", "output language (locale code or name)")
	cmd.Flags().StringSliceVar(&f.sections, "section", nil, "section to generate (repeatable; default: all)")
	cmd.Flags().BoolVar(&f.sequential, "sequential", false, "generate sections one at a time")
	cmd.Flags().StringVar(&f.out, "out", "", "write the profile to this file (.json for JSON, otherwise Markdown)")
	cmd.Flags().StringSliceVar(&f.files, "file", nil, "document to analyze into a file analysis section (repeatable)")
	return cmd
}

func runGenerate(cmd *cobra.Command, name string, f generateFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if f.sequential {
		a.cfg.Generation.Sequential = true
	}

	subject, err := profile.NewSubject(name, f.website, f.language)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStep("Generating profile for %s", subject.Name())

	progress := orchestrator.NewChannelPublisher(0)
	done := make(chan struct{})
	go drainProgress(os.Stderr, progress.Events(), done)

	opts := []orchestrator.CallOption{orchestrator.WithPublisher(progress)}
	if a.cfg.Generation.Sequential {
		opts = append(opts, orchestrator.Sequential())
	}
	out := a.orchestrator().Call(ctx, subject, f.sections, opts...)
	progress.Close()
	<-done

	if !out.OK() {
		if out.Failure.BacktraceHint != "" {
			a.logger.Debug(out.Failure.BacktraceHint)
		}
		return fmt.Errorf("%s: %s", out.Failure.ErrorKind, out.Failure.ErrorMessage)
	}

	p := out.Success.Profile
	if len(f.files) > 0 {
		sec, err := analyzeFiles(ctx, a, subject, f.files)
		if err != nil {
			printWarning("file analysis failed: %v", err)
		} else {
			p.Sections = append(p.Sections, sec)
		}
	}

	printSuccess("Generated %d of %d sections in %.1fs",
		out.Success.SectionsGenerated, out.Success.SectionsRequested, out.Success.DurationSeconds())

	canonical, err := a.catalog.Available()
	if err != nil {
		return err
	}
	if f.out == "" {
		fmt.Fprint(cmd.OutOrStdout(), export.Markdown(p, canonical))
		return nil
	}
	return writeProfile(f.out, p, canonical)
}

func writeProfile(path string, p *profile.Profile, canonical []string) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := export.JSON(p, canonical, time.Now())
		if err != nil {
			return fmt.Errorf("encoding profile: %w", err)
		}
		data = b
	} else {
		data = []byte(export.Markdown(p, canonical))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	printStatus("Saved", "%s", path)
	return nil
}

func analyzeFiles(ctx context.Context, a *app, subject *profile.Subject, paths []string) (profile.Section, error) {
	blocks := make([]llm.PromptBlock, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return profile.Section{}, fmt.Errorf("reading %s: %w", path, err)
		}
		mt := mediaType(path, data)
		if mt != "application/pdf" {
			blocks = append(blocks, llm.TextBlock(fmt.Sprintf("File: %s\n\n%s", filepath.Base(path), data)))
			continue
		}
		blocks = append(blocks, llm.PromptBlock{
			Type:      llm.BlockDocument,
			Filename:  filepath.Base(path),
			MediaType: mt,
			Data:      data,
		})
	}

	printStep("Analyzing %d file(s)", len(blocks))
	analyzer := &orchestrator.FileAnalyzer{
		Catalog: a.catalog,
		Clients: a.factory,
		Retry:   a.cfg.Executor(),
		Logger:  a.logger,
	}
	return analyzer.Analyze(ctx, subject, blocks)
}

func mediaType(path string, data []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		mt, _, _ = strings.Cut(mt, ";")
		return mt
	}
	mt, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return mt
}
