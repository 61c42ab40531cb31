package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_NilErrReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CategoryDecode, "op", "msg"))
}

func TestWrap_PreservesCategoryAndOp(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, CategoryOrchestrator, "patch", "replica update failed")

	assert.Equal(t, CategoryOrchestrator, GetCategory(err))
	assert.True(t, IsCategory(err, CategoryOrchestrator))
	assert.False(t, IsCategory(err, CategoryDecode))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "replica update failed")
}

func TestWrapf_FormatsMessage(t *testing.T) {
	err := Wrapf(errors.New("eof"), CategoryDecode, "decode", "sensor %q", "framesqueued")
	assert.Contains(t, err.Error(), `sensor "framesqueued"`)
}

func TestNew_Newf(t *testing.T) {
	err := New(CategoryBusDisconnect, "subscribe", "connection reset")
	assert.Equal(t, CategoryBusDisconnect, GetCategory(err))

	err2 := Newf(CategoryNoProcessing, "aggregate", "pod %s reported zero rate", "pod-1")
	assert.Contains(t, err2.Error(), "pod-1")
}

func TestGetCategory_NonControlError(t *testing.T) {
	assert.Equal(t, "", GetCategory(errors.New("plain")))
	assert.False(t, IsCategory(errors.New("plain"), CategoryDecode))
}

func TestControlError_IsMatchesCategoryAndOp(t *testing.T) {
	err := Wrap(errors.New("x"), CategoryOrchestrator, "read", "")
	target := &ControlError{Category: CategoryOrchestrator}
	assert.True(t, errors.Is(err, target))

	wrongOp := &ControlError{Category: CategoryOrchestrator, Op: "patch"}
	assert.False(t, errors.Is(err, wrongOp))

	wrongCategory := &ControlError{Category: CategoryDecode}
	assert.False(t, errors.Is(err, wrongCategory))
}

func TestOrchestratorError(t *testing.T) {
	err := OrchestratorError("read", errors.New("timeout"))
	assert.True(t, IsCategory(err, CategoryOrchestrator))

	err2 := OrchestratorErrorf("patch", errors.New("conflict"), "deployment %s", "worker")
	assert.Contains(t, err2.Error(), "worker")
}

func TestDecodeError(t *testing.T) {
	err := DecodeError("decode", errors.New("bad json"))
	assert.True(t, IsCategory(err, CategoryDecode))
}

func TestStartupErrorf(t *testing.T) {
	err := StartupErrorf("init", "missing flag %s", "--bus-endpoint")
	assert.True(t, IsCategory(err, CategoryStartup))
	assert.Contains(t, err.Error(), "--bus-endpoint")
}

func TestStartupError(t *testing.T) {
	err := StartupError("loading kubeconfig", errors.New("no such file"))
	assert.True(t, IsCategory(err, CategoryStartup))
	assert.ErrorContains(t, err, "no such file")
}
