// Command ssaocheck validates SSAO shader programs and runs the effect on a
// headless device.
//
// It prints the reflected bindings and uniform layout of both programs,
// then simulates a number of frames, including a resize and a degenerate
// zero-width frame, and prints effect and device statistics.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/ssao"
	"github.com/gogpu/ssao/config"
	"github.com/gogpu/ssao/gpu"
	"github.com/gogpu/ssao/internal/shaders"
)

func main() {
	var (
		width      = flag.Int("width", 1920, "camera target width")
		height     = flag.Int("height", 1080, "camera target height")
		frames     = flag.Int("frames", 8, "frames to simulate")
		configPath = flag.String("config", "", "settings file (.toml, .yaml)")
		watch      = flag.Bool("watch", false, "reload volumes when the settings file changes")
		occPath    = flag.String("occlusion", "", "occlusion WGSL (default: built-in)")
		blurPath   = flag.String("blur", "", "blur WGSL (default: built-in)")
		backend    = flag.String("backend", "noop", "hal backend: noop or vulkan")
		spirv      = flag.Bool("spirv", false, "compile programs to SPIR-V")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	gpu.SetLogger(logger)

	b, err := parseBackend(*backend)
	if err != nil {
		log.Fatal(err)
	}
	src := ssao.DefaultSources(readSource(*occPath, shaders.Occlusion), readSource(*blurPath, shaders.Blur))

	var devOpts []gpu.Option
	if *spirv {
		devOpts = append(devOpts, gpu.WithSPIRV())
	}
	dev, err := gpu.Open(b, devOpts...)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Destroy()

	for _, ps := range []ssao.ProgramSource{src.Occlusion, src.Blur} {
		p, err := dev.CreateProgram(ps)
		if err != nil {
			log.Fatalf("Invalid program %s: %v", ps.Name, err)
		}
		printLayout(os.Stdout, p.(*gpu.Program))
		dev.DestroyProgram(p)
	}

	fxOpts := []ssao.Option{ssao.WithLogger(logger)}
	switch {
	case *configPath != "" && *watch:
		w, err := config.Watch(*configPath, config.WithLogger(logger))
		if err != nil {
			log.Fatalf("Failed to watch config: %v", err)
		}
		defer w.Close()
		fxOpts = append(fxOpts, w.File().Options()...)
		fxOpts = append(fxOpts, ssao.WithVolumes(w))
	case *configPath != "":
		f, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		fxOpts = append(fxOpts, f.Options()...)
	}

	fx := ssao.New(dev, fxOpts...)
	defer fx.Dispose()
	if err := fx.Setup(src); err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	if err := simulate(dev, fx, *width, *height, *frames); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	st := fx.Stats()
	ds := dev.Stats()
	p := fx.Params()
	fmt.Printf("frames: executed=%d skipped=%d allocations=%d\n", st.Executed, st.Skipped, st.Allocations)
	fmt.Printf("params: radius=%.3g intensity=%.3g quality=%v samples=%d\n", p.Radius, p.Intensity, p.Quality, p.Quality.SampleCount())
	fmt.Printf("device: submitted=%d completed=%d pipelines=%d textures=%d deferred=%d\n",
		ds.Submitted, ds.Completed, ds.Pipelines, ds.LiveTextures, ds.Deferred)
}

func parseBackend(name string) (gputypes.Backend, error) {
	switch strings.ToLower(name) {
	case "noop", "empty":
		return gputypes.BackendEmpty, nil
	case "vulkan":
		return gputypes.BackendVulkan, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", name)
	}
}

func readSource(path, fallback string) string {
	if path == "" {
		return fallback
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read shader: %v", err)
	}
	return string(b)
}

func printLayout(w io.Writer, p *gpu.Program) {
	fmt.Fprintf(w, "%s:\n", p.Name())
	for i := range p.Passes() {
		fmt.Fprintf(w, "  pass %d: %s\n", i, p.PassEntry(i))
	}
	for _, b := range p.Bindings() {
		fmt.Fprintf(w, "  @binding(%d) %s: %s\n", b.Binding, b.Name, b.Kind)
	}
	for _, u := range p.Uniforms() {
		fmt.Fprintf(w, "  %4d %s: %s\n", u.Offset, u.Name, u.Type)
	}
}

// host is a stand-in renderer: a camera target plus depth and normals.
type host struct {
	dev     *gpu.Device
	target  ssao.TextureDescriptor
	depth   ssao.Texture
	normals ssao.Texture
}

func (h *host) resize(w, ht int) error {
	h.release()
	depth, err := h.dev.CreateTexture(ssao.TextureDescriptor{Format: gputypes.TextureFormatDepth32Float, Width: w, Height: ht})
	if err != nil {
		return fmt.Errorf("depth: %w", err)
	}
	normals, err := h.dev.CreateTexture(ssao.TextureDescriptor{Format: gputypes.TextureFormatRGBA16Float, Width: w, Height: ht})
	if err != nil {
		h.dev.DestroyTexture(depth)
		return fmt.Errorf("normals: %w", err)
	}
	h.depth, h.normals = depth, normals
	h.target = ssao.TextureDescriptor{
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Width:         w,
		Height:        ht,
		MipLevelCount: 1,
		SampleCount:   1,
		DepthBits:     24,
	}
	return nil
}

func (h *host) release() {
	if h.depth != nil {
		h.dev.DestroyTexture(h.depth)
		h.dev.DestroyTexture(h.normals)
		h.depth, h.normals = nil, nil
	}
}

func (h *host) inputs(cam ssao.Camera) ssao.FrameInputs {
	return ssao.FrameInputs{
		Context: h.dev,
		Depth:   h.depth,
		GBuffer: ssao.GBufferFunc(func(i int) ssao.Texture {
			if i == ssao.NormalsChannel {
				return h.normals
			}
			return nil
		}),
		Camera: cam,
	}
}

// simulate runs frames at w x h. Frame 1 has a zero-width target and the
// second half of the run is at half resolution.
func simulate(dev *gpu.Device, fx *ssao.Effect, w, h, frames int) error {
	hs := &host{dev: dev}
	defer hs.release()
	if err := hs.resize(w, h); err != nil {
		return err
	}

	for i := range frames {
		if i == frames/2 && i > 0 {
			w, h = max(w/2, 1), max(h/2, 1)
			if err := hs.resize(w, h); err != nil {
				return err
			}
			log.Printf("frame %d: resized to %dx%d", i, w, h)
		}

		target := hs.target
		if i == 1 {
			target.Width = 0
		}
		cam := ssao.Camera{
			Projection:    perspective(math32.Pi/3, float32(w)/float32(h), 0.1, 100),
			WorldToCamera: orbit(float32(i) * 0.1),
			FlipY:         true,
		}
		fx.Configure(target)
		fx.Execute(hs.inputs(cam))
	}
	dev.Poll()
	return nil
}

// perspective returns a right-handed projection with clip z in [-1, 1].
func perspective(fovy, aspect, near, far float32) f32.Mat4 {
	f := 1 / math32.Tan(fovy/2)
	nf := 1 / (near - far)
	return f32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, 2 * far * near * nf,
		0, 0, -1, 0,
	}
}

// orbit places the camera 5 units from the origin, rotated by angle about y.
func orbit(angle float32) f32.Mat4 {
	s, c := math32.Sincos(angle)
	return f32.Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, -5,
		0, 0, 0, 1,
	}
}
