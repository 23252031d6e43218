package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bgrewell/usage"
	"github.com/theckman/yacspin"

	"github.com/ckdisc/isoimage/isoimage"
)

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("isoforge"),
		usage.WithApplicationDescription("isoforge builds ISO 9660/Joliet optical disc images, with optional El Torito boot support, a UDF bridge volume, and DVD-Video sector alignment."),
	)

	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	sourceDir := u.AddStringOption("i", "input", "", "Path to the source directory to image", "required", nil)
	outputISO := u.AddStringOption("o", "output", "output.iso", "Path to the output ISO file", "optional", nil)
	volumeID := u.AddStringOption("V", "volume-id", "ISOIMAGE", "Volume identifier", "optional", nil)
	hiddenFiles := u.AddStringOption("H", "hide", "", "Comma-separated original filenames to hide", "optional", nil)
	joliet := u.AddBooleanOption("j", "joliet", true, "Include a Joliet supplementary volume descriptor", "optional", nil)
	udf := u.AddBooleanOption("u", "udf", false, "Include a UDF bridge volume", "optional", nil)
	dvdVideo := u.AddBooleanOption("d", "dvd-video", false, "Pad VOB files to DVD-Video ECC block boundaries", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose progress", "optional", nil)

	if !u.Parse() {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}
	if *sourceDir == "" {
		u.PrintError(fmt.Errorf("input directory (-i) must be provided"))
		os.Exit(1)
	}

	fsMode := selectFileSystemMode(*joliet, *udf, *dvdVideo)

	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " isoforge",
		SuffixAutoColon: true,
		Message:         "scanning",
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		u.PrintError(fmt.Errorf("creating spinner: %w", err))
		os.Exit(1)
	}
	if err := spinner.Start(); err != nil {
		u.PrintError(fmt.Errorf("starting spinner: %w", err))
		os.Exit(1)
	}

	var log isoimage.Logger
	if *verbose {
		log = isoimage.NewConsoleLogger(os.Stderr)
	}
	progress := isoimage.NewConsoleProgress(os.Stderr, func(status string) {
		spinner.Message(status)
	}, nil)

	opts := isoimage.NewOptions(
		isoimage.WithFileSystem(fsMode),
		isoimage.WithVolumeIdentifier(*volumeID, *volumeID),
		isoimage.WithLogger(log),
		isoimage.WithProgress(progress),
	)

	fs, err := isoimage.ScanDirectory(*sourceDir)
	if err != nil {
		_ = spinner.StopFail()
		u.PrintError(fmt.Errorf("scanning %s: %w", *sourceDir, err))
		os.Exit(1)
	}

	if *hiddenFiles != "" {
		hideSet := map[string]bool{}
		for _, name := range strings.Split(*hiddenFiles, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				hideSet[trimmed] = true
			}
		}
		for i := range fs {
			base := fs[i].InternalPath
			if idx := strings.LastIndex(base, "/"); idx >= 0 {
				base = base[idx+1:]
			}
			if hideSet[base] {
				fs[i].Flags |= isoimage.FlagHidden
			}
		}
	}

	driver := isoimage.NewDriver(opts)
	spinner.Message("building")
	if err := driver.Create(fs, *outputISO); err != nil {
		_ = spinner.StopFail()
		u.PrintError(fmt.Errorf("building image: %w", err))
		os.Exit(1)
	}

	spinner.StopMessage(fmt.Sprintf("wrote %s", *outputISO))
	_ = spinner.Stop()
}

// selectFileSystemMode maps the CLI's independent joliet/udf/dvdVideo flags
// onto the single FileSystemMode the image driver expects. DVD-Video discs
// always carry a UDF bridge and never Joliet, matching how commercial
// DVD-Video authoring tools lay out VIDEO_TS.
func selectFileSystemMode(joliet, udf, dvdVideo bool) isoimage.FileSystemMode {
	switch {
	case dvdVideo:
		return isoimage.ModeDVDVideo
	case udf && joliet:
		return isoimage.ModeISO9660UDFJoliet
	case udf:
		return isoimage.ModeISO9660UDF
	case joliet:
		return isoimage.ModeISO9660Joliet
	default:
		return isoimage.ModeISO9660
	}
}
