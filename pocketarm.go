// Command pocketarm loads a flash image for the ARMv6-M handheld core
// and runs it, presenting the ST7735 framebuffer in a window and
// feeding keyboard state back in as the button shifter's byte.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"pocketarm/arm"
	"pocketarm/arm/peripherals"
	"pocketarm/logger"
)

// options collates the command line configuration, following the
// flag.FlagSet-per-invocation pattern used for every emulation mode.
type options struct {
	rom      string
	offset   uint
	seed     int64
	scale    int
	logEcho  bool
	stepCap  uint
}

func parseArgs(args []string) (options, error) {
	var opts options

	flgs := flag.NewFlagSet("pocketarm", flag.ContinueOnError)
	flgs.UintVar(&opts.offset, "offset", 0, "byte offset into flash at which to load the ROM image")
	flgs.Int64Var(&opts.seed, "seed", 1, "seed for the reproducible-RNG compatibility address")
	flgs.IntVar(&opts.scale, "scale", 3, "integer window scale factor applied to the 160x128 panel")
	flgs.BoolVar(&opts.logEcho, "log", false, "echo the diagnostic logger to stderr")
	flgs.UintVar(&opts.stepCap, "stepcap", 200000, "PC-advance ticks executed per emulated frame")

	if err := flgs.Parse(args); err != nil {
		return opts, err
	}

	remaining := flgs.Args()
	if len(remaining) != 1 {
		return opts, fmt.Errorf("expected exactly one ROM path, got %d", len(remaining))
	}
	opts.rom = remaining[0]
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.logEcho {
		logger.SetEcho(os.Stderr, true)
	}

	rom, err := os.ReadFile(opts.rom)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading ROM: %v\n", err)
		os.Exit(1)
	}

	machine := arm.New(opts.seed)
	if err := machine.LoadProgram(rom, uint32(opts.offset)); err != nil {
		fmt.Fprintf(os.Stderr, "loading ROM: %v\n", err)
		os.Exit(1)
	}

	game := &pocketGame{machine: machine, stepCap: int(opts.stepCap)}

	ebiten.SetWindowSize(peripherals.DisplayWidth*opts.scale, peripherals.DisplayHeight*opts.scale)
	ebiten.SetWindowTitle("pocketarm")
	ebiten.SetWindowResizable(true)

	if err := ebiten.RunGame(game); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// pocketGame adapts Machine.Run/ScreenData to the ebiten.Game
// interface: one Run call of stepCap ticks per frame, buttons
// sampled from the keyboard immediately beforehand.
type pocketGame struct {
	machine *arm.Machine
	stepCap int
	screen  *ebiten.Image
	pixels  []byte
}

var buttonKeys = [8]ebiten.Key{
	ebiten.KeyArrowUp,
	ebiten.KeyArrowDown,
	ebiten.KeyArrowLeft,
	ebiten.KeyArrowRight,
	ebiten.KeyZ,
	ebiten.KeyX,
	ebiten.KeyEnter,
	ebiten.KeyBackspace,
}

func (g *pocketGame) sampleButtons() byte {
	var state byte
	for i, key := range buttonKeys {
		if ebiten.IsKeyPressed(key) || inpututil.IsKeyJustPressed(key) {
			state |= 1 << uint(i)
		}
	}
	return state
}

func (g *pocketGame) Update() error {
	g.machine.Run(g.stepCap, g.sampleButtons())
	return nil
}

func (g *pocketGame) Draw(screen *ebiten.Image) {
	if g.screen == nil {
		g.screen = ebiten.NewImage(peripherals.DisplayWidth, peripherals.DisplayHeight)
		g.pixels = make([]byte, peripherals.DisplayWidth*peripherals.DisplayHeight*4)
	}

	framebuffer := g.machine.ScreenData()
	for i, argb := range framebuffer {
		g.pixels[i*4+0] = byte(argb)
		g.pixels[i*4+1] = byte(argb >> 8)
		g.pixels[i*4+2] = byte(argb >> 16)
		g.pixels[i*4+3] = byte(argb >> 24)
	}
	g.screen.WritePixels(g.pixels)

	op := &ebiten.DrawImageOptions{}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	op.GeoM.Scale(float64(w)/peripherals.DisplayWidth, float64(h)/peripherals.DisplayHeight)
	screen.DrawImage(g.screen, op)
}

func (g *pocketGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
