package main

import (
	"fmt"
	"os"

	"postfx-gl/bake"
	"postfx-gl/libio"

	"github.com/spf13/cobra"
)

type bakeArgs struct {
	kernels     string
	device      string
	compression string
}

func parseDeviceType(name string) (bake.DeviceType, error) {
	switch name {
	case "cpu":
		return bake.DeviceTypeCPU, nil
	case "gpu":
		return bake.DeviceTypeGPU, nil
	case "accelerator":
		return bake.DeviceTypeAccelerator, nil
	}
	return 0, fmt.Errorf("unknown device type %q", name)
}

func newBakeCmd() *cobra.Command {
	args := bakeArgs{
		kernels:     "shaders/atmosphere.cl",
		device:      "gpu",
		compression: libio.FloatImageCompressionFixedPoint16Lz4.String(),
	}

	cmd := &cobra.Command{
		Use:   "bake <out-dir>",
		Short: "Bake the atmosphere lookup tables with OpenCL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			deviceType, err := parseDeviceType(args.device)
			if err != nil {
				return err
			}
			compression, err := libio.ParseFloatImageCompression(args.compression)
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args.kernels)
			if err != nil {
				return err
			}

			if name, err := bake.DeviceName(deviceType); err == nil {
				logger.Info("baking atmosphere", "device", name)
			}
			tables, err := bake.Atmosphere(deviceType, string(source), profile.Atmosphere)
			if err != nil {
				return err
			}
			if err := tables.Save(positional[0], compression); err != nil {
				return err
			}
			logger.Info("saved tables", "dir", positional[0], "compression", compression)
			return nil
		},
	}

	cmd.Flags().StringVar(&args.kernels, "kernels", args.kernels, "OpenCL source defining the precompute kernels")
	cmd.Flags().StringVar(&args.device, "device", args.device, "Preferred OpenCL device type (cpu, gpu, accelerator)")
	cmd.Flags().StringVar(&args.compression, "compression", args.compression, "Table compression (none, fp16lz4)")
	return cmd
}
