package main

import "testing"

func TestRootCmdRequiresConfigOrServeDir(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error when neither a config path nor --serve-dir is given")
	}
}

func TestRootCmdRejectsExtraArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"a.toml", "b.toml"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for more than one positional argument")
	}
}
