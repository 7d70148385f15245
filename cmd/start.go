package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/pulse/internal/boot"
	"firestige.xyz/pulse/internal/config"
)

var (
	srcFlag string
	dstFlag string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lifesign peer",
	Long: `Start the peer and run until SIGINT/SIGTERM.

Examples:
  pulse start --src 127.0.0.1:5000 --dst 127.0.0.1:6000
  pulse start -c pulse.yml
  pulse start -c pulse.yml --dst 10.0.0.2:5000   # flag overrides file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if srcFlag != "" {
			cfg.Peer.Src = srcFlag
		}
		if dstFlag != "" {
			cfg.Peer.Dst = dstFlag
		}
		return boot.Run(cfg)
	},
	SilenceUsage: true,
}

func init() {
	startCmd.Flags().StringVar(&srcFlag, "src", "", "local address ipv4:port")
	startCmd.Flags().StringVar(&dstFlag, "dst", "", "remote address ipv4:port")
	rootCmd.AddCommand(startCmd)
}
