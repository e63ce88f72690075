package commands

import (
	"context"
	"time"

	"github.com/marmos91/keepfs/internal/cli/output"
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/spf13/cobra"
)

var (
	listFormat string
	statFormat string
)

// fileView is the printable form of filestore.EntryInfo.
type fileView struct {
	Name      string     `json:"name" yaml:"name"`
	Path      string     `json:"path" yaml:"path"`
	Mode      string     `json:"mode" yaml:"mode"`
	Algorithm string     `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Hashed    bool       `json:"hashed" yaml:"hashed"`
	Hash      string     `json:"hash,omitempty" yaml:"hash,omitempty"`
	Size      int64      `json:"size" yaml:"size"`
	Modified  *time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
	Created   time.Time  `json:"created" yaml:"created"`
	Updated   time.Time  `json:"updated" yaml:"updated"`
	Missing   bool       `json:"missing,omitempty" yaml:"missing,omitempty"`
}

func newFileView(info *filestore.EntryInfo) fileView {
	v := fileView{
		Name:      info.Name,
		Path:      info.Path,
		Mode:      info.Mode.String(),
		Algorithm: info.Algorithm,
		Hashed:    info.Hashed,
		Hash:      info.Hash,
		Size:      info.Size,
		Created:   info.CreatedAt,
		Updated:   info.UpdatedAt,
		Missing:   info.FileMissing,
	}
	if !info.FileMissing {
		mod := info.ModTime
		v.Modified = &mod
	}
	return v
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered files",
	Long: `List every registered file in registration order.

Examples:
  keepfs list
  keepfs list -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(listFormat)
		if err != nil {
			return err
		}

		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			views := make([]fileView, 0)
			table := output.NewTableData("Name", "Mode", "Hashed", "Size", "Modified", "Path")

			for _, name := range s.store.List() {
				info, err := s.store.Stat(ctx, name)
				if err != nil {
					return err
				}
				v := newFileView(info)
				views = append(views, v)
				table.AddRow(v.Name, output.Mode(v.Mode, v.Algorithm), output.YesNo(v.Hashed),
					output.Size(v.Size, v.Missing, false), output.Age(v.Modified), v.Path)
			}

			return output.Print(cmd.OutOrStdout(), format, views, table)
		})
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show details of a registered file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statFormat)
		if err != nil {
			return err
		}

		return withStore(cmd, false, func(ctx context.Context, s *session) error {
			info, err := s.store.Stat(ctx, args[0])
			if err != nil {
				return err
			}
			v := newFileView(info)

			if format != output.FormatTable {
				return output.Print(cmd.OutOrStdout(), format, v, nil)
			}

			return output.SimpleTable(cmd.OutOrStdout(), output.KeyValue{
				{"Name", v.Name},
				{"Path", v.Path},
				{"Mode", output.Mode(v.Mode, v.Algorithm)},
				{"Hash", output.Hash(v.Hash)},
				{"Size", output.Size(v.Size, v.Missing, true)},
				{"Created", v.Created.Format(time.RFC3339)},
				{"Updated", v.Updated.Format(time.RFC3339)},
			})
		})
	},
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "Output format (table, json, yaml)")
	statCmd.Flags().StringVarP(&statFormat, "output", "o", "table", "Output format (table, json, yaml)")
}
