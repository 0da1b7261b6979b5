package toolloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunOptions_Defaults(t *testing.T) {
	o := newRunOptions()
	assert.False(t, o.streamFinal)
	assert.Equal(t, 0, o.maxToolRuns)
	assert.False(t, o.strict)
	assert.False(t, o.verbose)
	assert.Nil(t, o.selector)
	assert.NotNil(t, o.logger)
}

func TestRunOptions_Applied(t *testing.T) {
	logger := zap.NewNop()
	o := newRunOptions(
		WithStreamFinalResponse(),
		WithMaxToolRuns(5),
		WithStrictValidation(),
		WithLogger(logger),
		WithSelector(AutoTrim(nil)),
	)
	assert.True(t, o.streamFinal)
	assert.Equal(t, 5, o.maxToolRuns)
	assert.True(t, o.strict)
	assert.Same(t, logger, o.logger)
	assert.NotNil(t, o.selector)
}

func TestRunOptions_NegativeToolRunsClamped(t *testing.T) {
	o := newRunOptions(WithMaxToolRuns(-3))
	assert.Equal(t, 0, o.maxToolRuns)
}

func TestRunOptions_NilLoggerIgnored(t *testing.T) {
	o := newRunOptions(WithLogger(nil))
	assert.NotNil(t, o.logger)
}

func TestRunOptions_VerboseWithoutLogger(t *testing.T) {
	o := newRunOptions(WithVerbose())
	assert.True(t, o.verbose)
	assert.NotNil(t, o.logger)
}
