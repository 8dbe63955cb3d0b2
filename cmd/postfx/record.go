package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"postfx-gl/atmosphere"
	"postfx-gl/effects"
	"postfx-gl/libgpu"
	"postfx-gl/pipeline"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type recordArgs struct {
	frames       int
	width        int
	height       int
	camera       string
	table        bool
	atmosphere   bool
	sunElevation float32
}

func newRecordCmd() *cobra.Command {
	args := recordArgs{
		frames: 2,
		width:  1920,
		height: 1080,
		camera: effects.CameraGame.String(),
	}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record frames without a GPU and print the command stream",
		Long: `Record frames against the command recorder. Fails if a frame leaves a surface
live, so it doubles as a leak check for a profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().IntVarP(&args.frames, "frames", "n", args.frames, "Number of frames to record")
	cmd.Flags().IntVar(&args.width, "width", args.width, "Camera width in pixels")
	cmd.Flags().IntVar(&args.height, "height", args.height, "Camera height in pixels")
	cmd.Flags().StringVar(&args.camera, "camera", args.camera, "Camera kind (game, scene-view, preview, reflection)")
	cmd.Flags().BoolVar(&args.table, "table", args.table, "Print the command stream of the last frame")
	cmd.Flags().BoolVar(&args.atmosphere, "atmosphere", args.atmosphere, "Precompute the atmosphere tables before the first frame")
	cmd.Flags().Float32Var(&args.sunElevation, "sun-elevation", 45, "Sun elevation in degrees for the atmosphere light")
	return cmd
}

func recordCamera(args recordArgs) (effects.Camera, error) {
	var kind effects.CameraKind
	if err := kind.UnmarshalText([]byte(args.camera)); err != nil {
		return effects.Camera{}, err
	}
	if args.width <= 0 || args.height <= 0 {
		return effects.Camera{}, fmt.Errorf("invalid camera size %dx%d", args.width, args.height)
	}
	aspect := float32(args.width) / float32(args.height)
	return effects.Camera{
		Kind:       kind,
		PixelRect:  libgpu.Rect{Width: args.width, Height: args.height},
		Projection: mgl32.Perspective(mgl32.DegToRad(60), aspect, 0.1, 1000),
	}, nil
}

// sunForward points from the sun towards the ground at the given elevation.
func sunForward(elevation float32) mgl32.Vec3 {
	rad := mgl32.DegToRad(elevation)
	return mgl32.Vec3{0, -math32.Sin(rad), -math32.Cos(rad)}
}

func runRecord(out io.Writer, args recordArgs) (err error) {
	camera, err := recordCamera(args)
	if err != nil {
		return err
	}

	rec := libgpu.NewRecorder()
	pool := libgpu.NewSurfacePool(rec)
	renderer := pipeline.NewCameraRenderer(pool, logger)
	sky := atmosphere.New(pool, logger)
	defer func() {
		err = errors.Join(err, sky.Close(), renderer.Close(), pool.Close())
	}()

	if args.atmosphere {
		if err := sky.Setup(profile.Atmosphere); err != nil {
			return err
		}
		if err := sky.PrecomputeAll(); err != nil {
			return err
		}
		light, err := sky.UpdateSunColor(sunForward(args.sunElevation))
		if err != nil {
			return err
		}
		logger.Info("atmosphere precomputed", "sun", light.Color, "intensity", light.Intensity)
	}

	cfg := profile.FrameConfig(camera)
	format := libgpu.FormatDefault
	if cfg.UseHDR {
		format = libgpu.FormatDefaultHDR
	}
	source := pool.Intern("record/source")

	stats := tablewriter.NewWriter(out)
	stats.SetHeader([]string{"Frame", "Requests", "Releases", "Live", "Persistent", "Draws", "Dispatches"})
	for frame := 0; frame < args.frames; frame++ {
		rec.Reset()
		if err := pool.Request(source, cfg.BufferSize.Width, cfg.BufferSize.Height, format, libgpu.FilterBilinear); err != nil {
			return err
		}
		st, err := renderer.Render(camera, source, &profile)
		if err = errors.Join(err, pool.Release(source)); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		stats.Append([]string{
			strconv.Itoa(frame),
			strconv.Itoa(st.Requests),
			strconv.Itoa(st.Releases),
			strconv.Itoa(st.Live),
			strconv.Itoa(st.Persistent),
			strconv.Itoa(len(rec.Filter(libgpu.OpDraw))),
			strconv.Itoa(len(rec.Filter(libgpu.OpDispatch))),
		})
	}

	if args.table {
		rec.WriteTable(out, pool.Name)
	}
	stats.Render()
	return nil
}
