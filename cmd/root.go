package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fourshot/wigglegram/internal/pipeline"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wigglegram frame0 frame1 frame2 frame3",
	Short: "Build a looping ping-pong animation from four captures of one scene",
	Long: `wigglegram aligns four independently captured images of the same scene and
assembles them into a stabilized, border-trimmed, looping ping-pong GIF.

The four inputs must be given in capture-device order. Small hand/mount
jitter between the shots is corrected by an exhaustive block-matching
search before cropping.

Examples:
  # Build an animation from four captures
  wigglegram shot0.jpg shot1.jpg shot2.jpg shot3.jpg -o out.gif

  # Disable stabilization and tighten the inward trim
  wigglegram shot{0..3}.jpg --stabilize=false --crop-percent 0.02 -o out.gif

  # Start the HTTP ingestion server
  wigglegram serve --port 8080`,
	Args: cobra.ExactArgs(pipeline.FrameCount),
	RunE: runBuild,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wigglegram.yaml)")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	// Pipeline options, shared with the serve command through viper
	rootCmd.PersistentFlags().Int("target-width", 0, "target canvas width (0 = native size of frame 0)")
	rootCmd.PersistentFlags().Int("target-height", 0, "target canvas height (0 = native size of frame 0)")
	rootCmd.PersistentFlags().Int("frame-delay-ms", pipeline.DefaultFrameDelayMs, "delay between animation frames in milliseconds")
	rootCmd.PersistentFlags().Bool("stabilize", true, "correct inter-frame jitter before cropping")
	rootCmd.PersistentFlags().Int("max-shift-px", pipeline.DefaultMaxShiftPx, "motion search radius at work resolution (0-50)")
	rootCmd.PersistentFlags().Float64("crop-percent", pipeline.DefaultCropPercent, "intentional inward trim relative to min(W,H) (0-0.30)")
	rootCmd.PersistentFlags().Bool("auto-border-detect", true, "crop residual black/transparent borders")
	rootCmd.PersistentFlags().Int("alpha-threshold", pipeline.DefaultThreshold, "alpha above which a pixel counts as content (0-255)")
	rootCmd.PersistentFlags().Int("black-threshold", pipeline.DefaultThreshold, "channel value above which a pixel counts as content (0-255)")
	rootCmd.PersistentFlags().Int("auto-border-margin-px", 0, "extra inward margin after border detection (0-20)")

	// Bind flags to viper
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("target-width", rootCmd.PersistentFlags().Lookup("target-width"))
	viper.BindPFlag("target-height", rootCmd.PersistentFlags().Lookup("target-height"))
	viper.BindPFlag("frame-delay-ms", rootCmd.PersistentFlags().Lookup("frame-delay-ms"))
	viper.BindPFlag("stabilize", rootCmd.PersistentFlags().Lookup("stabilize"))
	viper.BindPFlag("max-shift-px", rootCmd.PersistentFlags().Lookup("max-shift-px"))
	viper.BindPFlag("crop-percent", rootCmd.PersistentFlags().Lookup("crop-percent"))
	viper.BindPFlag("auto-border-detect", rootCmd.PersistentFlags().Lookup("auto-border-detect"))
	viper.BindPFlag("alpha-threshold", rootCmd.PersistentFlags().Lookup("alpha-threshold"))
	viper.BindPFlag("black-threshold", rootCmd.PersistentFlags().Lookup("black-threshold"))
	viper.BindPFlag("auto-border-margin-px", rootCmd.PersistentFlags().Lookup("auto-border-margin-px"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".wigglegram" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wigglegram")
	}

	viper.SetEnvPrefix("WIGGLEGRAM")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig resolves the merged (file > env > default) pipeline config.
func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		TargetWidth:        viper.GetInt("target-width"),
		TargetHeight:       viper.GetInt("target-height"),
		FrameDelayMs:       viper.GetInt("frame-delay-ms"),
		Stabilize:          viper.GetBool("stabilize"),
		MaxShiftPx:         viper.GetInt("max-shift-px"),
		CropPercent:        viper.GetFloat64("crop-percent"),
		AutoBorderDetect:   viper.GetBool("auto-border-detect"),
		AlphaThreshold:     viper.GetInt("alpha-threshold"),
		BlackThreshold:     viper.GetInt("black-threshold"),
		AutoBorderMarginPx: viper.GetInt("auto-border-margin-px"),
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	output := viper.GetString("output")

	// Check if output is to terminal
	if output == "" {
		if stat, _ := os.Stdout.Stat(); (stat.Mode() & os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
	}

	inputs := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", path, err)
		}
		inputs = append(inputs, data)
	}

	result, err := pipeline.Build(inputs, pipelineConfig())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "==Frames: %d (%d sequence entries)\n", pipeline.FrameCount, 6)
	fmt.Fprintf(os.Stderr, "==Canvas: %dx%d\n", result.Width, result.Height)
	for i, o := range result.Offsets {
		fmt.Fprintf(os.Stderr, "==Offset frame %d: dx:%d dy:%d\n", i, o.DX, o.DY)
	}

	if output == "" {
		_, err = os.Stdout.Write(result.GIF)
		return err
	}

	if err := os.WriteFile(output, result.GIF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %v", output, err)
	}
	fmt.Fprintf(os.Stderr, "Output GIF: %s (%d bytes)\n", output, len(result.GIF))
	return nil
}
