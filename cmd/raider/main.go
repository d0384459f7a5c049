package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raidersec/raider/config"
	"github.com/raidersec/raider/fuzz"
	"github.com/raidersec/raider/raider"
	"github.com/raidersec/raider/session"
)

var (
	projectDir string
	sessionDir string
	proxy      string
	insecure   bool
	userAgent  string
	activeUser string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "raider",
		Short: "Drive a web authentication graph described in YAML",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&projectDir, "project", ".", "directory containing the project's *.yaml files")
	root.PersistentFlags().StringVar(&sessionDir, "session-dir", "", "directory to dump/load session state (defaults to <project>/.raider-session)")
	root.PersistentFlags().StringVar(&proxy, "proxy", "", "upstream HTTP proxy URL")
	root.PersistentFlags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	root.PersistentFlags().StringVar(&userAgent, "user-agent", "", "User-Agent header to send")
	root.PersistentFlags().StringVar(&activeUser, "user", "", "username to authenticate as (defaults to the project's configured active user)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAuthenticateCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newSessionCmd())
	root.AddCommand(newFuzzCmd())

	return root
}

func newAuthenticateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authenticate",
		Short: "Run the authentication graph from its first flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, sess, err := loadRunner()
			if err != nil {
				return err
			}
			result, err := runner.Authenticate(cmd.Context())
			if err != nil {
				return err
			}
			logrus.WithField("stopped", result.Stopped).Info("authentication run finished")
			return dumpIfConfigured(sess, runner.Graph.BaseURL)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <function>",
		Short: "Run a named standalone function flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, sess, err := loadRunner()
			if err != nil {
				return err
			}
			if err := loadSessionIfPresent(sess); err != nil {
				return err
			}
			result, err := runner.RunFunction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logrus.WithField("stopped", result.Stopped).Info("function run finished")
			return dumpIfConfigured(sess, runner.Graph.BaseURL)
		},
	}
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or manage persisted session state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Authenticate then write the resulting session state to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, sess, err := loadRunner()
			if err != nil {
				return err
			}
			if _, err := runner.Authenticate(cmd.Context()); err != nil {
				return err
			}
			return sess.Dump(resolveSessionDir(), []string{runner.Graph.BaseURL})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Load persisted session state and run a function with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, sess, err := loadRunner()
			if err != nil {
				return err
			}
			if err := sess.Load(resolveSessionDir()); err != nil {
				return err
			}
			result, err := runner.RunFunction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logrus.WithField("stopped", result.Stopped).Info("function run finished")
			return nil
		},
	})
	return cmd
}

func newFuzzCmd() *cobra.Command {
	var (
		plugin   string
		wordlist string
		mode     string
		isAuth   bool
		flowName string
	)
	cmd := &cobra.Command{
		Use:   "fuzz <flow>",
		Short: "Fuzz one plugin's value across a wordlist, running it through a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flowName = args[0]
			words, err := fuzz.LoadWordlist(wordlist)
			if err != nil {
				return err
			}

			runner, sess, err := loadRunner()
			if err != nil {
				return err
			}
			if err := loadSessionIfPresent(sess); err != nil {
				return err
			}

			var proc fuzz.Processor
			switch mode {
			case "prepend":
				proc = fuzz.Prepend
			case "append":
				proc = fuzz.Append
			default:
				proc = fuzz.Replace
			}

			original, _ := sess.Store.Get(plugin)
			cases := fuzz.Cases(words, original, proc)

			var reports []fuzz.Report
			if isAuth {
				reports, err = fuzz.Authentication(cmd.Context(), runner, flowName, plugin, cases)
			} else {
				reports, err = fuzz.Function(cmd.Context(), runner, flowName, plugin, cases)
			}
			if err != nil {
				return err
			}

			for _, r := range reports {
				status := 0
				if r.Response != nil {
					status = r.Response.StatusCode
				}
				fmt.Printf("%s\t%s\t%d\t%v\n", r.Case.ID, r.Case.Value, status, r.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plugin, "plugin", "", "name of the plugin to fuzz (required)")
	cmd.Flags().StringVar(&wordlist, "wordlist", "", "path to a newline-delimited wordlist (required)")
	cmd.Flags().StringVar(&mode, "mode", "replace", "how to combine the original value with each word: replace, prepend, append")
	cmd.Flags().BoolVar(&isAuth, "authentication", false, "treat <flow> as an authentication stage instead of a standalone function")
	cmd.MarkFlagRequired("plugin")
	cmd.MarkFlagRequired("wordlist")
	return cmd
}

func loadRunner() (*raider.Runner, *session.Session, error) {
	graph, users, err := config.Load(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project: %w", err)
	}

	if activeUser != "" {
		if err := users.SetActive(activeUser); err != nil {
			return nil, nil, err
		}
	}

	sess, err := session.New(users.Active(), session.Config{
		Proxy:     proxy,
		Insecure:  insecure,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building session: %w", err)
	}

	return raider.NewRunner(graph, sess), sess, nil
}

func resolveSessionDir() string {
	if sessionDir != "" {
		return sessionDir
	}
	return filepath.Join(projectDir, ".raider-session")
}

func dumpIfConfigured(sess *session.Session, baseURL string) error {
	if sessionDir == "" {
		return nil
	}
	return sess.Dump(resolveSessionDir(), []string{baseURL})
}

func loadSessionIfPresent(sess *session.Session) error {
	dir := resolveSessionDir()
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	return sess.Load(dir)
}
