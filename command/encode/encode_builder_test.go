package encode

import (
	"bgremove/command"
	"strings"
	"testing"
)

func TestEncodeBuilder_Defaults(t *testing.T) {
	builder := NewEncodeBuilder("/tmp/job/chunk_0001.mp4", 1280, 720, "30000/1001")
	argsStr := strings.Join(builder.BuildArgs(), " ")

	want := []string{
		"-f rawvideo -pix_fmt rgb24 -s 1280x720 -r 30000/1001 -i pipe:0",
		"-an",
		"-c:v libx264",
		"-crf 23",
		"-preset veryfast",
		"-pix_fmt yuv420p",
	}
	for _, w := range want {
		if !strings.Contains(argsStr, w) {
			t.Errorf("Expected %q in args: %s", w, argsStr)
		}
	}
	if strings.Contains(argsStr, "pad=") {
		t.Errorf("Even size should not be padded: %s", argsStr)
	}
	if !strings.HasSuffix(argsStr, "-y /tmp/job/chunk_0001.mp4") {
		t.Errorf("Expected output last, got: %s", argsStr)
	}
}

func TestEncodeBuilder_OddSizeIsPadded(t *testing.T) {
	argsStr := strings.Join(NewEncodeBuilder("/tmp/c.mp4", 641, 481, "25").BuildArgs(), " ")
	if !strings.Contains(argsStr, "-vf pad=ceil(iw/2)*2:ceil(ih/2)*2") {
		t.Errorf("Expected pad filter, got: %s", argsStr)
	}

	argsStr = strings.Join(NewEncodeBuilder("/tmp/c.mp4", 641, 481, "25").SetPixelFormat("yuv444p").BuildArgs(), " ")
	if strings.Contains(argsStr, "pad=") {
		t.Errorf("yuv444p should not be padded, got: %s", argsStr)
	}
}

func TestEncodeBuilder_Setters(t *testing.T) {
	tests := []struct {
		name     string
		builder  *EncodeBuilder
		contains []string
		excludes []string
	}{
		{
			name:     "codec and quality",
			builder:  NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25").SetCodec("libx265").SetCRF(28).SetPreset("medium"),
			contains: []string{"-c:v libx265", "-crf 28", "-preset medium"},
		},
		{
			name:     "negative crf omitted",
			builder:  NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25").SetCRF(-1),
			excludes: []string{"-crf"},
		},
		{
			name:     "empty preset omitted",
			builder:  NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25").SetPreset(""),
			excludes: []string{"-preset"},
		},
		{
			name:     "extra args",
			builder:  NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25").AddExtraArgs("-tune", "film"),
			contains: []string{"-tune film -y /tmp/c.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argsStr := strings.Join(tt.builder.BuildArgs(), " ")
			for _, c := range tt.contains {
				if !strings.Contains(argsStr, c) {
					t.Errorf("Expected %q in args: %s", c, argsStr)
				}
			}
			for _, e := range tt.excludes {
				if strings.Contains(argsStr, e) {
					t.Errorf("Did not expect %q in args: %s", e, argsStr)
				}
			}
		})
	}
}

func TestEncodeBuilder_DryRun(t *testing.T) {
	tests := []struct {
		name    string
		builder *EncodeBuilder
		wantErr bool
	}{
		{"valid", NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25"), false},
		{"no output", NewEncodeBuilder("", 64, 64, "25"), true},
		{"zero width", NewEncodeBuilder("/tmp/c.mp4", 0, 64, "25"), true},
		{"no rate", NewEncodeBuilder("/tmp/c.mp4", 64, 64, ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.DryRun()
			if (err != nil) != tt.wantErr {
				t.Errorf("DryRun() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	b := NewEncodeBuilder("/tmp/c.mp4", 64, 64, "25")
	if b.GetTaskType() != command.TaskTypeEncode || b.GetInputPath() != "pipe:0" || b.GetOutputPath() != "/tmp/c.mp4" {
		t.Error("Unexpected builder metadata")
	}
}
