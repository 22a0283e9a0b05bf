package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags are registered in init(), so a lookup failure is a programming bug
// and the getters below panic instead of returning an error.

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	return mustFlag(name, val, err)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	return mustFlag(name, val, err)
}

func mustGetUint64(cmd *cobra.Command, name string) uint64 {
	val, err := cmd.Flags().GetUint64(name)
	return mustFlag(name, val, err)
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	return mustFlag(name, val, err)
}

func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	return mustFlag(name, val, err)
}

func mustFlag[T any](name string, val T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
