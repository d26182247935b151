package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Device is an inference device.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// ParseDevice accepts "auto", "cuda" (or "gpu") and "cpu".
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DeviceAuto, nil
	case "cuda", "gpu":
		return DeviceCUDA, nil
	case "cpu":
		return DeviceCPU, nil
	}
	return "", fmt.Errorf("unknown device %q (want auto, cuda or cpu)", s)
}

// Detect lists the devices usable on this host, best first. CPU is always
// available. smi is the nvidia-smi binary ("" means PATH).
func Detect(ctx context.Context, smi string) []Device {
	if smi == "" {
		smi = "nvidia-smi"
	}

	var available []Device
	out, err := exec.CommandContext(ctx, smi, "-L").Output()
	if err == nil && strings.Contains(string(out), "GPU") {
		available = append(available, DeviceCUDA)
	}

	return append(available, DeviceCPU)
}

// Select resolves the requested device against what is available. An
// explicit CUDA request on a host without a GPU is an error; auto falls
// back to CPU.
func Select(requested Device, available []Device) (Device, error) {
	has := func(d Device) bool {
		for _, a := range available {
			if a == d {
				return true
			}
		}
		return false
	}

	switch requested {
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceCUDA:
		if !has(DeviceCUDA) {
			return "", fmt.Errorf("cuda requested but no NVIDIA GPU was detected")
		}
		return DeviceCUDA, nil
	case DeviceAuto, "":
		if has(DeviceCUDA) {
			return DeviceCUDA, nil
		}
		return DeviceCPU, nil
	}
	return "", fmt.Errorf("unknown device %q", requested)
}
