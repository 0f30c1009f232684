package app

import (
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds each flag to the viper key of the same name, so the
// RULEGRAB_<FLAG> environment variable can stand in for it
func bindFlags(v *viper.Viper, flags ...*pflag.Flag) {
	for _, f := range flags {
		if err := v.BindPFlag(f.Name, f); err != nil {
			slog.Error("Failed to bind flag", "flag", f.Name, "error", err)
		}
	}
}
