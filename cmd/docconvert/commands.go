package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/urfave/cli/v2"

	"github.com/JonMunkholm/docconvert/internal/client"
	"github.com/JonMunkholm/docconvert/internal/converters"
	"github.com/JonMunkholm/docconvert/internal/core"
)

// stdio names standard input or output in file arguments.
const stdio = "-"

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a file locally",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Aliases: []string{"t"}, Usage: "output format: PDF, HTML, XHTML, MARKDOWN or TEXT", Required: true},
			&cli.StringFlag{Name: "type", Usage: "MIME type of the input; detected from content when empty"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: `output path, "-" for stdout; derived from the input name when empty`},
			&cli.StringFlag{Name: "policy", Usage: "converter policy file", EnvVars: []string{"CONVERT_POLICY_FILE"}},
			&cli.DurationFlag{Name: "timeout", Usage: "maximum conversion time", Value: 2 * time.Minute, EnvVars: []string{"CONVERT_TIMEOUT"}},
		},
		Action: runConvert,
	}
}

func remoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "remote",
		Usage:     "convert a file on a running server",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "server base URL", Value: "http://localhost:8080", EnvVars: []string{"DOCCONVERT_SERVER"}},
			&cli.StringFlag{Name: "to", Aliases: []string{"t"}, Usage: "output format", Required: true},
			&cli.StringFlag{Name: "type", Usage: "MIME type of the input; detected from content when empty"},
			&cli.BoolFlag{Name: "download", Usage: "request an attachment and save it under the server-derived name"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: `output path, "-" for stdout`},
			&cli.DurationFlag{Name: "timeout", Usage: "maximum request time", Value: client.DefaultTimeout},
		},
		Action: runRemote,
	}
}

func formatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: "list supported conversions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Usage: "list a running server's conversions instead", EnvVars: []string{"DOCCONVERT_SERVER"}},
			&cli.StringFlag{Name: "policy", Usage: "converter policy file", EnvVars: []string{"CONVERT_POLICY_FILE"}},
		},
		Action: runFormats,
	}
}

func runConvert(c *cli.Context) error {
	path, err := inputPath(c)
	if err != nil {
		return err
	}
	target, err := core.ResolveTargetFormat(c.String("to"))
	if err != nil {
		return err
	}

	reg, err := localRegistry(c.String("policy"))
	if err != nil {
		return err
	}

	in, name, err := openInput(c, path)
	if err != nil {
		return err
	}
	defer in.Close()

	contentType, body, err := declaredType(c.String("type"), in)
	if err != nil {
		return err
	}
	kind, err := core.ResolveSourceKind(contentType)
	if err != nil {
		return err
	}

	opts := core.OptionsFrom(kind).Into(target)
	produce, err := core.NewDispatcher(reg).Plan(opts, core.Source{
		Body:    body,
		Name:    name,
		Charset: core.CharsetParam(contentType),
	})
	if err != nil {
		return err
	}

	outPath := c.String("out")
	if outPath == "" {
		if path == stdio {
			outPath = stdio
		} else {
			outPath = filepath.Join(filepath.Dir(path), core.DeriveFilename(name, target))
		}
	}
	sink, err := openOutput(c, path, outPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	started := time.Now()
	resp := core.BuildResponse(target, produce, false, name)
	if err := resp.Stream(ctx, sink); err != nil {
		if outPath != stdio {
			_ = os.Remove(outPath)
		}
		return err
	}

	slog.Info("converted",
		"from", opts.From,
		"to", opts.To.Name,
		"input", path,
		"output", outPath,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if outPath != stdio {
		fmt.Fprintln(c.App.ErrWriter, outPath)
	}
	return nil
}

func runRemote(c *cli.Context) error {
	path, err := inputPath(c)
	if err != nil {
		return err
	}

	in, name, err := openInput(c, path)
	if err != nil {
		return err
	}
	defer in.Close()

	contentType, body, err := declaredType(c.String("type"), in)
	if err != nil {
		return err
	}

	cl, err := client.New(c.String("server"), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	out, err := cl.Convert(ctx, client.ConvertInput{
		Body:        body,
		Filename:    name,
		ContentType: contentType,
		Format:      c.String("to"),
		Download:    c.Bool("download"),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	outPath := c.String("out")
	if outPath == "" {
		outPath = stdio
		if out.Filename != "" && path != stdio {
			outPath = filepath.Join(filepath.Dir(path), filepath.Base(out.Filename))
		}
	}
	sink, err := openOutput(c, path, outPath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(sink, out.Body)
	if err := errors.Join(copyErr, sink.Release(copyErr)); err != nil {
		if outPath != stdio {
			_ = os.Remove(outPath)
		}
		return fmt.Errorf("receive conversion %s: %w", out.ConversionID, err)
	}

	slog.Info("converted remotely", "conversion_id", out.ConversionID, "output", outPath)
	if outPath != stdio {
		fmt.Fprintln(c.App.ErrWriter, outPath)
	}
	return nil
}

func runFormats(c *cli.Context) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)

	if server := c.String("server"); server != "" {
		cl, err := client.New(server, nil)
		if err != nil {
			return err
		}
		pairs, err := cl.Formats(c.Context)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Fprintln(w, p)
		}
		return w.Flush()
	}

	reg, err := localRegistry(c.String("policy"))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "SOURCE\tMIME TYPE\tTARGETS")
	for _, kind := range core.Kinds() {
		targets := reg.TargetsFor(kind)
		if len(targets) == 0 {
			continue
		}
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, kind.MIMEType(), strings.Join(names, ", "))
	}
	return w.Flush()
}

func inputPath(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s: expected exactly one input file", c.Command.Name), 2)
	}
	return c.Args().First(), nil
}

// localRegistry builds the registry the server would build from policyFile.
func localRegistry(policyFile string) (*core.Registry, error) {
	policy, err := converters.LoadPolicy(policyFile)
	if err != nil {
		return nil, err
	}
	reg := core.NewRegistry()
	if err := converters.Register(reg, policy); err != nil {
		return nil, err
	}
	return reg, nil
}

// openInput opens path, or stdin for "-". The logical name is the base name.
func openInput(c *cli.Context, path string) (io.ReadCloser, string, error) {
	if path == stdio {
		return io.NopCloser(c.App.Reader), core.DefaultDocumentName, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	return f, core.CleanName(filepath.Base(path)), nil
}

// openOutput returns a sink for path, or stdout for "-". It refuses to
// truncate the input file.
func openOutput(c *cli.Context, inPath, path string) (core.ByteSink, error) {
	if path == stdio {
		return core.CloserSink(nopWriteCloser{c.App.Writer}), nil
	}
	if sameFile(inPath, path) {
		return nil, cli.Exit(fmt.Sprintf("%s: output %s would overwrite the input", c.Command.Name, path), 2)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return core.CloserSink(f), nil
}

// sameFile reports whether a and b name the same file, either by path or,
// when both exist, by identity (links included).
func sameFile(a, b string) bool {
	if a == stdio || b == stdio {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// declaredType returns declared when set. Otherwise the type is sniffed
// from the head of r, walking up mimetype's hierarchy until a supported
// kind matches; the returned reader replays the sniffed bytes.
func declaredType(declared string, r io.Reader) (string, io.Reader, error) {
	if declared != "" {
		return declared, r, nil
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read input: %w", err)
	}
	head = head[:n]
	body := io.MultiReader(bytes.NewReader(head), r)

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if _, err := core.ResolveSourceKind(m.String()); err == nil {
			slog.Debug("detected input type", "mime", m.String())
			return m.String(), body, nil
		}
	}
	return detected.String(), body, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
