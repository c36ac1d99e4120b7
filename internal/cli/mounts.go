package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/llehouerou/shoal/internal/errmsg"
	"github.com/llehouerou/shoal/internal/render"
)

func newMountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mounts",
		Short: "List the devices of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			devices := c.Mounts().Devices()
			rows := make([][]string, len(devices))
			for i, d := range devices {
				state := "offline"
				if d.Mounted {
					state = "mounted"
				}
				rows[i] = []string{strconv.Itoa(d.ID), d.Label, d.MountPoint, state}
			}
			if err := render.Table(cmd.OutOrStdout(), []string{"id", "label", "mount point", "state"}, rows, 0); err != nil {
				return fail(errmsg.OpMountList, err)
			}
			return nil
		},
	}
	cmd.AddCommand(newMountsAddCmd(a))
	return cmd
}

func newMountsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <dir>",
		Short: "Register a directory as a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return failWith(errmsg.OpMountRegister, args[0], err)
			}
			c, err := a.openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := c.Mounts().Register(cmd.Context(), dir)
			if err != nil {
				return failWith(errmsg.OpMountRegister, dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as device %d\n", dir, id)
			return nil
		},
	}
}
