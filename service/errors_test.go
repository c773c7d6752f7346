package service

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestFatal(t *testing.T) {
	err := MakeFatal(fmt.Errorf("no response"))
	if !Fatal(err) {
		t.Error("expected fatal error")
	}
	if Temporary(err) {
		t.Error("a fatal error cannot be temporary")
	}
	err = fmt.Errorf("Fetch.%w", err)
	if !Fatal(err) {
		t.Error("expected wrapped fatal error")
	}
	if Fatal(fmt.Errorf("plain")) {
		t.Error("plain error is not fatal")
	}
}

func TestGoogleAPITemporary(t *testing.T) {
	if !Temporary(fmt.Errorf("upload: %w", &googleapi.Error{Code: 503})) {
		t.Error("503 must be temporary")
	}
	if Temporary(&googleapi.Error{Code: 403}) {
		t.Error("403 must not be temporary")
	}
}

func TestMergeErrors(t *testing.T) {
	tmp := MakeTemporary(errors.New("tmp"))
	perm := errors.New("perm")

	if err := MergeErrors(false, nil, tmp, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	err := MergeErrors(true, nil, tmp, perm)
	if err == nil {
		t.Fatal("expected an error")
	}
	if Temporary(err) {
		t.Errorf("priority to error: permanent error expected first, got %v", err)
	}
	err = MergeErrors(false, perm, tmp)
	if !Temporary(err) {
		t.Errorf("priority to success: temporary error expected first, got %v", err)
	}
}
