package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/partbridge/internal/config"
	"github.com/hpungsan/partbridge/internal/errors"
	"github.com/hpungsan/partbridge/internal/kicadcli"
	"github.com/hpungsan/partbridge/internal/logging"
	"github.com/hpungsan/partbridge/internal/mcp"
	"github.com/hpungsan/partbridge/internal/ops"
	"github.com/hpungsan/partbridge/internal/watch"
	"github.com/hpungsan/partbridge/internal/web"
)

// libOpener opens the library a command works on. The returned func releases it.
type libOpener func(c *cli.Context) (*ops.Library, func(), error)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open libOpener) *cli.App {
	app := &cli.App{
		Name:    "partbridge",
		Usage:   "Import vendor CAD archives into a KiCad library",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-dir", Usage: "Config directory (default ~/.partbridge)"},
			&cli.StringFlag{Name: "library-root", Usage: "Library root directory", EnvVars: []string{config.EnvLibraryRoot}},
			&cli.BoolFlag{Name: "verbose", Usage: "Debug logging on stderr"},
		},
		Commands: []*cli.Command{
			importCmd(open),
			listCmd(open),
			searchCmd(open),
			showCmd(open),
			deleteCmd(open),
			exportCmd(open),
			registerCmd(open),
			doctorCmd(open),
			serveCmd(open),
			uiCmd(open),
			watchCmd(open),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// openFromConfig loads <base-dir>/config.json, applies flag overrides and opens the library.
func openFromConfig(c *cli.Context) (*ops.Library, func(), error) {
	baseDir := c.String("base-dir")
	if baseDir == "" {
		dir, err := config.DefaultBaseDir()
		if err != nil {
			return nil, nil, errors.NewInternal(fmt.Errorf("could not determine home directory: %w", err))
		}
		baseDir = dir
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err))
	}
	// import carries its own --library-root; the nearest non-empty value wins
	for _, lc := range c.Lineage() {
		if root := lc.String("library-root"); root != "" {
			cfg.LibraryRoot = root
			break
		}
	}

	logger := logging.New(os.Stderr, c.Bool("verbose"))
	lib, err := ops.OpenLibrary(cfg, kicadcli.Discover(cfg.KiCadCLI), logger)
	if err != nil {
		return nil, nil, err
	}
	return lib, func() { lib.Close() }, nil
}

// importCmd creates the import command.
func importCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a vendor archive into the library",
		ArgsUsage: "<archive>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source-url", Usage: "URL the archive was downloaded from"},
			&cli.StringFlag{Name: "referrer-url", Usage: "Page the download was started from"},
			&cli.StringFlag{Name: "library-root", Usage: "Library root directory"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Acknowledge replacing an existing component"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("archive path is required"))
			}
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Import(c.Context, lib, ops.ImportInput{
				ArchivePath: c.Args().First(),
				SourceURL:   c.String("source-url"),
				ReferrerURL: c.String("referrer-url"),
				Overwrite:   c.Bool("overwrite"),
			})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(c.App.Writer, output); err != nil {
				return err
			}
			if output.Status == ops.StatusError {
				return cli.Exit(fmt.Sprintf("[%s] %s", output.ErrorCode, output.Error), 1)
			}
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List components, most recently updated first",
		Flags: pageFlags(),
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.List(c.Context, lib, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search components by MPN, manufacturer or description",
		ArgsUsage: "<query>",
		Flags:     pageFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Search(c.Context, lib, ops.SearchInput{
				Query:  c.Args().First(),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a component and its recent activity",
		ArgsUsage: "<id|mpn>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "log-limit", Usage: "Maximum activity entries"},
		},
		Action: func(c *cli.Context) error {
			id, mpn, err := addressArg(c)
			if err != nil {
				return outputError(err)
			}
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Fetch(c.Context, lib, ops.FetchInput{ID: id, MPN: mpn, LogLimit: c.Int("log-limit")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a component and its library files",
		ArgsUsage: "<id|mpn>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keep-files", Usage: "Remove only the record"},
		},
		Action: func(c *cli.Context) error {
			id, mpn, err := addressArg(c)
			if err != nil {
				return outputError(err)
			}
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Delete(c.Context, lib, ops.DeleteInput{ID: id, MPN: mpn, KeepFiles: c.Bool("keep-files")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export component records to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.partbridge/exports/<alias>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Export(c.Context, lib, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// registerCmd creates the register command.
func registerCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register the library tables and 3D model variable with KiCad",
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.RegisterLibrary(c.Context, lib)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// doctorCmd creates the doctor command.
func doctorCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Show resolved paths, kicad-cli availability and registration state",
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			output, err := ops.Status(c.Context, lib)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server over stdio",
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			if unknown := mcp.ValidateDisabledTools(lib.Config.DisabledTools); len(unknown) > 0 {
				lib.Logger.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
			}
			if unknown := mcp.ValidateDisabledTypes(lib.Config.DisabledTypes); len(unknown) > 0 {
				lib.Logger.Warn().Strs("types", unknown).Msg("unknown types in disabled_types")
			}

			return mcp.Run(lib, Version)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Browse the library in a local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8741, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			srv, err := web.NewServer(lib, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, lib.Logger)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(open libOpener) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Import archives as they appear in a downloads directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "overwrite", Usage: "Acknowledge replacing existing components"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("directory is required"))
			}
			lib, release, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer release()

			w, err := watch.New(watch.Config{
				Dir:       c.Args().First(),
				Patterns:  lib.Config.Patterns(),
				Debounce:  time.Duration(lib.Config.WatchDebounceMs) * time.Millisecond,
				Logger:    lib.Logger,
				OnArchive: importArchive(lib, c.App.Writer, c.Bool("overwrite")),
			})
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
}

// importArchive returns the watcher callback: one import per settled file,
// its result printed as a JSON document.
func importArchive(lib *ops.Library, out io.Writer, overwrite bool) func(context.Context, string) error {
	return func(ctx context.Context, path string) error {
		output, err := ops.Import(ctx, lib, ops.ImportInput{ArchivePath: path, Overwrite: overwrite})
		if err != nil {
			return err
		}
		event := lib.Logger.Info()
		if output.Status == ops.StatusError {
			event = lib.Logger.Warn().Str("error_code", output.ErrorCode)
		}
		event.Str("archive", path).Str("status", output.Status).Str("mpn", output.MPN).Msg("archive processed")
		return outputJSON(out, output)
	}
}

// Helper functions

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
		&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
	}
}

// addressArg reads the component address from the first argument. One that
// parses as a ULID is an ID, anything else an MPN.
func addressArg(c *cli.Context) (id, mpn string, err error) {
	if c.NArg() == 0 {
		return "", "", errors.NewInvalidRequest("component ID or MPN is required")
	}
	arg := c.Args().First()
	if _, perr := ulid.ParseStrict(arg); perr == nil {
		return arg, "", nil
	}
	return "", arg, nil
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var bErr *errors.BridgeError
	if stderrors.As(err, &bErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
