package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/curlform/internal/config"
	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/ingest/landmarks"
	"github.com/claude/curlform/internal/ingest/timeline"
)

func main() {
	configPath := flag.String("config", "", "optional config file for tracker settings")
	timelineOut := flag.String("timeline", "", "write the per-frame timeline CSV to this path")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	minROM := flag.Float64("min-rom", -1, "override minimum range of motion in degrees (0 disables)")
	verbose := flag.Bool("v", false, "log every counted rep")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: curlform-analyze [-config config.yaml] [-timeline out.csv] [-json] <recording.csv|recording.json>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	tracker := curl.DefaultConfig()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		tracker = cfg.Tracker
	}
	if *minROM >= 0 {
		tracker.MinROM = *minROM
	}
	if err := tracker.Validate(); err != nil {
		log.Error("invalid tracker config", "error", err)
		os.Exit(1)
	}

	frames, fps, err := load(path, tracker)
	if err != nil {
		log.Error("failed to read recording", "file", path, "error", err)
		os.Exit(1)
	}

	analysis, err := ingest.Replay(frames, tracker, log)
	if err != nil {
		log.Error("analysis failed", "error", err)
		os.Exit(1)
	}
	res := ingest.NewResult(filepath.Base(path), analysis, fps)

	if *timelineOut != "" {
		if err := writeTimeline(*timelineOut, analysis.Timeline); err != nil {
			log.Error("writing timeline failed", "error", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Error("encoding result failed", "error", err)
			os.Exit(1)
		}
		return
	}
	printResult(res)
}

// load reads a timeline CSV or a landmark JSON recording by extension.
func load(path string, tracker curl.Config) ([]curl.FrameSample, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		frames, err := timeline.Parse(f)
		if err != nil {
			return nil, 0, err
		}
		if len(frames) == 0 {
			return nil, 0, fmt.Errorf("timeline has no frames")
		}
		return frames, 0, nil
	case ".json":
		p, err := landmarks.Decode(f)
		if err != nil {
			return nil, 0, err
		}
		return p.Samples(tracker), p.FPS, nil
	}
	return nil, 0, fmt.Errorf("unsupported file type %q (want .csv or .json)", filepath.Ext(path))
}

func writeTimeline(path string, statuses []curl.Status) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := timeline.NewWriter(f).WriteAll(statuses); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(res *ingest.Result) {
	fmt.Printf("=== %s ===\n", res.Name)
	fmt.Printf("  Frames:     %d (%d usable)\n", res.FramesReceived, res.FramesUsed)
	fmt.Printf("  Duration:   %.2fs at %.1f fps\n", res.DurationSec, res.FPS)
	fmt.Printf("  Left:       %d reps (%d correct, %d incorrect)\n", res.LeftReps, res.LeftCorrect, res.LeftIncorrect)
	fmt.Printf("  Right:      %d reps (%d correct, %d incorrect)\n", res.RightReps, res.RightCorrect, res.RightIncorrect)
	fmt.Printf("  Total:      %d reps\n", res.TotalReps)

	if len(res.Reps) > 0 {
		fmt.Println()
		fmt.Printf("  %-5s %-3s %8s %8s %7s %7s %6s  %s\n", "side", "#", "start", "end", "rom", "torso", "ok", "reasons")
		for _, r := range res.Reps {
			ok := "yes"
			if !r.Correct {
				ok = "no"
			}
			fmt.Printf("  %-5s %-3d %7.2fs %7.2fs %7.1f %7.1f %6s  %s\n",
				r.Side, r.Index, r.Start.Seconds(), r.End.Seconds(), r.ROM, r.MaxTorsoAngle, ok,
				strings.Join(curl.ReasonMessages(r.Reasons), "; "))
		}
	}

	if len(res.FormFeedback) > 0 {
		fmt.Println()
		fmt.Println("  Form feedback:")
		for _, fb := range res.FormFeedback {
			fmt.Printf("    - %s\n", fb)
		}
	}
}
