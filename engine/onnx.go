package engine

import (
	"bgremove/models"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the onnxruntime shared library once per process.
func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Options configures an ONNXEngine.
type Options struct {
	ModelPath   string
	LibraryPath string // onnxruntime shared library; "" uses the platform default
	InputSize   int
	InputName   string // "" reads the name from the model
	OutputName  string
	Device      Device
	Threads     int // intra-op threads, 0 lets onnxruntime decide
	DeviceID    int
}

// ONNXEngine runs a single-input matting model (MODNet-style exports:
// [1,3,S,S] image in, [1,1,S,S] matte out) with onnxruntime.
//
// Input and output tensors are allocated once and reused for every frame.
// Run calls are serialized, so one engine may be shared between
// goroutines at the cost of throughput.
type ONNXEngine struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
	device  Device
	logger  *slog.Logger
}

// NewONNXEngine loads the model. A CUDA device that cannot be initialized
// falls back to CPU with a warning.
func NewONNXEngine(opts Options, logger *slog.Logger) (*ONNXEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InputSize <= 0 {
		opts.InputSize = DefaultInputSize
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputName, outputName, err := ioNames(opts)
	if err != nil {
		return nil, err
	}

	s := int64(opts.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, s, s))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, s, s))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}

	e := &ONNXEngine{
		input:  input,
		output: output,
		size:   opts.InputSize,
		logger: logger,
	}

	device := opts.Device
	session, err := e.newSession(opts, inputName, outputName, device)
	if err != nil && device == DeviceCUDA {
		logger.Warn("cuda session failed, falling back to cpu", "error", err)
		device = DeviceCPU
		session, err = e.newSession(opts, inputName, outputName, device)
	}
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create session for %s: %w", opts.ModelPath, err)
	}

	e.session = session
	e.device = device

	logger.Info("matting model loaded",
		"model", opts.ModelPath,
		"device", device,
		"input_size", opts.InputSize,
		"input", inputName,
		"output", outputName)

	return e, nil
}

func (e *ONNXEngine) newSession(opts Options, inputName, outputName string, device Device) (*ort.AdvancedSession, error) {
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer so.Destroy()

	if opts.Threads > 0 {
		if err := so.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, err
		}
	}

	if device == DeviceCUDA {
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, err
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": fmt.Sprintf("%d", opts.DeviceID)}); err != nil {
			return nil, err
		}
		if err := so.AppendExecutionProviderCUDA(cuda); err != nil {
			return nil, err
		}
	}

	return ort.NewAdvancedSession(opts.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.Value{e.input}, []ort.Value{e.output}, so)
}

// ioNames reads the model signature and returns the tensor names to bind.
func ioNames(opts Options) (string, string, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read model inputs: %w", err)
	}
	return selectIONames(opts, inputs, outputs)
}

// selectIONames picks the input and output to bind, defaulting to the
// first of each. Only single-input models are supported: the engine feeds
// one [1,3,S,S] image and reads one [1,1,S,S] matte, so recurrent models
// that also take hidden state (RobustVideoMatting and the like) are
// rejected here rather than failing inside onnxruntime.
func selectIONames(opts Options, inputs, outputs []ort.InputOutputInfo) (string, string, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return "", "", fmt.Errorf("model %s has no inputs or outputs", opts.ModelPath)
	}
	if len(inputs) > 1 {
		names := make([]string, len(inputs))
		for i, info := range inputs {
			names[i] = info.Name
		}
		return "", "", fmt.Errorf("model %s takes %d inputs (%s), only single-input matting models are supported",
			opts.ModelPath, len(inputs), strings.Join(names, ", "))
	}

	in := inputs[0].Name
	if opts.InputName != "" && opts.InputName != in {
		return "", "", fmt.Errorf("model %s has no input %q (found %q)", opts.ModelPath, opts.InputName, in)
	}

	out := outputs[0].Name
	if opts.OutputName != "" {
		found := false
		for _, info := range outputs {
			if info.Name == opts.OutputName {
				found = true
				break
			}
		}
		if !found {
			return "", "", fmt.Errorf("model %s has no output %q", opts.ModelPath, opts.OutputName)
		}
		out = opts.OutputName
	}
	return in, out, nil
}

// InputSize returns the square working resolution.
func (e *ONNXEngine) InputSize() int {
	return e.size
}

// Device returns the device the session runs on.
func (e *ONNXEngine) Device() Device {
	return e.device
}

// Infer runs the model on input and copies the probabilities into alpha.
func (e *ONNXEngine) Infer(input, alpha []float32) error {
	if err := CheckShapes(e.size, input, alpha); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return fmt.Errorf("%w: engine is closed", models.ErrInference)
	}

	copy(e.input.GetData(), input)
	if err := e.session.Run(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInference, err)
	}
	copy(alpha, e.output.GetData())
	return nil
}

// Close releases the session and tensors.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.input.Destroy()
	e.output.Destroy()
	return err
}
