package main

import (
	"testing"

	"github.com/John-Robertt/eafgen/internal/config"
)

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    config.CLIArgs
		wantErr bool
	}{
		{name: "empty", args: nil, want: config.CLIArgs{}},
		{name: "root only", args: []string{"study"}, want: config.CLIArgs{Root: "study"}},
		{
			name: "all flags",
			args: []string{"study", "--input", "vids", "--output=anno", "--dry-run", "--keep-going", "--log-level=debug"},
			want: config.CLIArgs{
				Root: "study", Input: "vids", Output: "anno",
				DryRun: true, DryRunSet: true,
				KeepGoing: true, KeepGoingSet: true,
				LogLevel: "debug",
			},
		},
		{
			name: "explicit false",
			args: []string{"--dry-run=false", "--keep-going=false"},
			want: config.CLIArgs{DryRunSet: true, KeepGoingSet: true},
		},
		{name: "bad bool", args: []string{"--dry-run=yes"}, wantErr: true},
		{name: "missing value", args: []string{"--input"}, wantErr: true},
		{name: "empty value", args: []string{"--output="}, wantErr: true},
		{name: "bad level", args: []string{"--log-level", "loud"}, wantErr: true},
		{name: "unknown flag", args: []string{"--apply"}, wantErr: true},
		{name: "duplicate root", args: []string{"a", "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRunArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRunArgs(%v) err=%v wantErr=%v", tt.args, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("parseRunArgs(%v)=%+v，期望 %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestReportForConfigError(t *testing.T) {
	rr := reportForConfigError(&config.Error{Code: config.ErrCodeInvalid, Path: "/x/eafgen.yaml"})
	if rr.OK() || !rr.Aborted || rr.Summary.Failed != 1 {
		t.Fatalf("配置错误应生成失败 report：%+v", rr)
	}
	if rr.Items[0].ErrorCode != config.ErrCodeInvalid {
		t.Fatalf("错误码不正确：%q", rr.Items[0].ErrorCode)
	}
}
