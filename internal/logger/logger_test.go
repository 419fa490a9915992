package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prevOut := log.Out
	prevLevel := log.GetLevel()
	prevFormatter := log.Formatter
	SetOutput(buf)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetLevel(prevLevel)
		log.SetFormatter(prevFormatter)
	})
	return buf
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logrus.Level
		wantErr bool
	}{
		{"", logrus.InfoLevel, false},
		{"debug", logrus.DebugLevel, false},
		{"WARN", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"loud", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			capture(t)
			log.SetLevel(logrus.InfoLevel)

			err := SetLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got := log.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	_ = SetLevel("warn")

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t)
	_ = SetLevel("info")
	if err := SetFormat("json"); err != nil {
		t.Fatalf("SetFormat(json) error = %v", err)
	}

	WithFields(logrus.Fields{"version": int64(7)}).Info("Applied migration")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "Applied migration" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["version"] != float64(7) {
		t.Errorf("version = %v, want 7", entry["version"])
	}
}

func TestSetFormatInvalid(t *testing.T) {
	capture(t)
	if err := SetFormat("xml"); err == nil {
		t.Error("SetFormat(xml) expected error")
	}
}
