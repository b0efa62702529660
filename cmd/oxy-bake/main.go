// oxy-bake loads a skinned glTF/GLB model, plays one clip on several phase-shifted instances
// and writes every frame's bone palettes as JSON.
//
// Usage:
//
//	oxy-bake -model walker.glb -instances 4 -frames 120 -out walker.json
//	oxy-bake -config bake.toml
//
// Settings come from the optional config file, then OXY_* environment variables, then flags.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
)

func main() {
	configFile := flag.String("config", "", "Path to a TOML, YAML or JSON config file")
	modelPath := flag.String("model", "", "Path to the .gltf or .glb model")
	outPath := flag.String("out", "", "Output JSON file (default: stdout)")
	clip := flag.String("clip", "", "Clip to play (default: the first clip)")
	instances := flag.Int("instances", 0, "Number of animated instances (default: 1)")
	frames := flag.Int("frames", 0, "Number of frames to record (default: 250)")
	delta := flag.Float64("delta", 0, "Seconds per frame (default: 1/60)")
	maxBones := flag.Int("max-bones", 0, "Bone capacity per instance (default: 100)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU-1)")
	profile := flag.Bool("profile", false, "Log frame rate and memory statistics")
	realtime := flag.Bool("realtime", false, "Step frames on the engine clock at tick_rate instead of fixed deltas")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Model:     *modelPath,
		Output:    *outPath,
		Clip:      *clip,
		Instances: *instances,
		Frames:    *frames,
		Delta:     *delta,
		MaxBones:  *maxBones,
		Workers:   *workers,
		Profiling: *profile,
	})

	if cfg.Model == "" {
		fmt.Fprintln(os.Stderr, "Error: no model given. Use -model or the config file.")
		os.Exit(2)
	}

	if err := run(cfg, *realtime); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, realtime bool) error {
	ldr := loader.NewLoader(loader.BackendTypeGLTF, loader.WithMaxBones(cfg.MaxBones))

	start := time.Now()
	m, err := ldr.Load(cfg.Model)
	if err != nil {
		return err
	}
	log.Printf("[bake] loaded %s: %d bones, %d clips in %s", m.Name(), m.BoneCount(), m.AnimationCount(), time.Since(start).Round(time.Millisecond))

	var result *Result
	if realtime {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		result, err = bakeRealtime(ctx, m, cfg)
	} else {
		result, err = bake(m, cfg)
	}
	if err != nil {
		return err
	}
	log.Printf("[bake] recorded %d frames of %d instances", len(result.Frames), result.Instances)

	var out io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create %s: %w", cfg.Output, err)
		}
		defer f.Close()
		out = f
	}
	return writeResult(out, result)
}

func writeResult(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
