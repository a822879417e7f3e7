package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tabload/internal/config"
	"tabload/internal/storage"
)

// envPrefix namespaces environment overrides, e.g. TABLOAD_CHUNK_SIZE.
const envPrefix = "TABLOAD"

// streams are the process streams, swapped out by tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	s := streams{in: in, out: out, err: errOut}

	root := &cobra.Command{
		Use:   "tabload",
		Short: "Bulk-load FSDB and JSON tables into SQL databases",
		Long: `tabload reads a table (FSDB or JSON lines, optionally compressed, from a
file, stdin or an http(s) URL), creates the destination table and indexes,
and inserts every row in chunked transactions.

Configuration precedence: flags, then TABLOAD_* environment variables, then
the --config file, then defaults. A .env file in the working directory is
loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(newLoadCmd(s))
	root.AddCommand(newJSON2FSDBCmd(s))
	root.AddCommand(newBackendsCmd(s))
	return root
}

func newBackendsCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered sink backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range storage.ListKinds() {
				if _, err := fmt.Fprintln(s.out, k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newViper binds every flag of fs under its snake_case key (dots for nested
// keys are given explicitly in keys) and reads the optional config file.
func newViper(fs *pflag.FlagSet, keys map[string]string, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		key, ok := keys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", config.ErrConfig, configFile, err)
		}
	}
	return v, nil
}
