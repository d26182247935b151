package command

import "testing"

func TestTaskTypeUniqueness(t *testing.T) {
	taskTypes := []TaskType{
		TaskTypeDecode,
		TaskTypeEncode,
		TaskTypeConcat,
		TaskTypeMixing,
	}

	seen := make(map[TaskType]bool)
	for _, taskType := range taskTypes {
		if seen[taskType] {
			t.Errorf("Duplicate task type found: %s", taskType)
		}
		seen[taskType] = true
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "plain", args: []string{"-i", "in.mp4", "-y", "out.mp4"}, want: "ffmpeg -i in.mp4 -y out.mp4"},
		{name: "spaces", args: []string{"-i", "/my videos/in.mp4"}, want: "ffmpeg -i '/my videos/in.mp4'"},
		{name: "quote", args: []string{"-i", "it's.mp4"}, want: `ffmpeg -i 'it'\''s.mp4'`},
		{name: "empty arg", args: []string{"-metadata", ""}, want: "ffmpeg -metadata ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.args); got != tt.want {
				t.Errorf("Preview() = %s, want %s", got, tt.want)
			}
		})
	}
}
