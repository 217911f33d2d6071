// Command vertexdemo runs the vertex stage over an OBJ mesh or a generated
// batch and reports throughput.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/vertex"
	"github.com/gogpu/vertex/internal/objfile"

	// GPU batch processing, disabled at runtime with -gpu=false.
	_ "github.com/gogpu/vertex/gpu"
)

var (
	input      = flag.String("input", "", "OBJ mesh to transform (generated batch when empty)")
	count      = flag.Int("count", 100000, "generated vertex count when no input mesh is given")
	scale      = flag.Float64("scale", float64(vertex.DefaultScale), "uniform clip-space scale")
	workers    = flag.Int("workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	gpuEnabled = flag.Bool("gpu", true, "allow GPU batch processing")
	output     = flag.String("o", "", "write transformed records to this file")
	configPath = flag.String("config", "", "YAML config file, flags take precedence")
	verbose    = flag.Bool("v", false, "verbose logging")
)

// progressThreshold is the batch size above which a progress bar appears.
const progressThreshold = 100000

// slabSize is the per-iteration batch slice. Large enough to keep the
// accelerator eligible, small enough for visible progress.
const slabSize = 1 << 16

func main() {
	flag.Parse()

	settings, err := resolveSettings()
	if err != nil {
		log.Fatalf("vertexdemo: %v", err)
	}

	if settings.verbose {
		vertex.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if !settings.gpu {
		vertex.UnregisterAccelerator()
	}

	batch, err := loadBatch(settings)
	if err != nil {
		log.Fatalf("vertexdemo: %v", err)
	}

	stage := vertex.NewStage(
		vertex.WithTransform(settings.transform),
		vertex.WithWorkers(settings.workers),
	)
	defer stage.Close()

	out := make([]vertex.Output, len(batch))
	start := time.Now()
	if len(batch) > progressThreshold {
		bar := progressbar.Default(int64(len(batch)))
		for lo := 0; lo < len(batch); lo += slabSize {
			hi := lo + slabSize
			if hi > len(batch) {
				hi = len(batch)
			}
			stage.ProcessBatch(out[lo:hi], batch[lo:hi])
			_ = bar.Add(hi - lo)
		}
		_ = bar.Close()
	} else {
		stage.ProcessBatch(out, batch)
	}
	elapsed := time.Since(start)

	if settings.output != "" {
		if err := writeOutputs(settings.output, out); err != nil {
			log.Fatalf("vertexdemo: %v", err)
		}
	}

	rate := float64(len(batch)) / elapsed.Seconds() / 1e6
	log.Printf("transformed %d vertices in %v (%.1f Mverts/s, workers=%d)",
		len(batch), elapsed.Round(time.Microsecond), rate, stage.Workers())
	if settings.output != "" {
		log.Printf("wrote %d records (%d bytes) to %s",
			len(out), len(out)*int(vertex.OutputStride), settings.output)
	}
}

// loadBatch reads the input mesh, or synthesizes a spiral batch when no
// mesh is given.
func loadBatch(s settings) ([]vertex.Input, error) {
	if s.input != "" {
		batch, err := objfile.Load(s.input)
		if err != nil {
			return nil, err
		}
		log.Printf("loaded %s: %d vertices (%d triangles)", s.input, len(batch), len(batch)/3)
		return batch, nil
	}
	return generateBatch(s.count), nil
}

// generateBatch synthesizes a helix of n vertices with outward normals
// and wrapped texture coordinates.
func generateBatch(n int) []vertex.Input {
	batch := make([]vertex.Input, n)
	for i := range batch {
		t := float32(i) / float32(n)
		angle := t * 16 * math32.Pi
		sin, cos := math32.Sin(angle), math32.Cos(angle)
		r := 0.1 + 0.9*t
		batch[i] = vertex.Input{
			Position: mgl32.Vec3{r * cos, r * sin, 2*t - 1},
			Normal:   mgl32.Vec3{cos, sin, 0},
			TexCoord: mgl32.Vec2{t, 0.5 + 0.5*sin},
			Tangent:  mgl32.Vec4{-sin, cos, 0, 1},
		}
	}
	return batch
}

// writeOutputs dumps transformed records in the interleaved little-endian
// layout OutputVaryings describes.
func writeOutputs(path string, outs []vertex.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	le := binary.LittleEndian
	var rec [vertex.OutputStride]byte
	for _, o := range outs {
		le.PutUint32(rec[0:], math32.Float32bits(o.ClipPosition[0]))
		le.PutUint32(rec[4:], math32.Float32bits(o.ClipPosition[1]))
		le.PutUint32(rec[8:], math32.Float32bits(o.ClipPosition[2]))
		le.PutUint32(rec[12:], math32.Float32bits(o.ClipPosition[3]))
		le.PutUint32(rec[16:], math32.Float32bits(o.Normal[0]))
		le.PutUint32(rec[20:], math32.Float32bits(o.Normal[1]))
		le.PutUint32(rec[24:], math32.Float32bits(o.Normal[2]))
		le.PutUint32(rec[28:], math32.Float32bits(o.TexCoord[0]))
		le.PutUint32(rec[32:], math32.Float32bits(o.TexCoord[1]))
		if _, err := w.Write(rec[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
