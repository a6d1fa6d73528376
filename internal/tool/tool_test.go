package tool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/tool"
)

type toolMock struct {
	name        string
	description string
	params      []tool.Param
	ExecuteFunc func(ctx context.Context, args map[string]any) tool.Result
}

func (m *toolMock) Name() string             { return m.name }
func (m *toolMock) Description() string      { return m.description }
func (m *toolMock) Parameters() []tool.Param { return m.params }
func (m *toolMock) Execute(ctx context.Context, args map[string]any) tool.Result {
	return m.ExecuteFunc(ctx, args)
}

func TestRegistryInvoke(t *testing.T) {
	reg := tool.NewRegistry(nil)
	reg.Register(&toolMock{
		name:   "echo",
		params: []tool.Param{{Name: "text", Type: "string", Required: true}},
		ExecuteFunc: func(_ context.Context, args map[string]any) tool.Result {
			return tool.OK(map[string]any{"echo": args["text"]}, nil)
		},
	})

	ctx := context.Background()

	res := reg.Invoke(ctx, "echo", map[string]any{"text": "hello"})
	require.True(t, res.Succeeded())
	assert.Equal(t, "hello", res.Data["echo"])

	res = reg.Invoke(ctx, "echo", map[string]any{})
	assert.Equal(t, tool.StatusError, res.Status)
	assert.Contains(t, res.Err, "missing required parameter: text")

	res = reg.Invoke(ctx, "echo", map[string]any{"text": ""})
	assert.Equal(t, tool.StatusError, res.Status)
	assert.Contains(t, res.Err, "missing required parameter: text")

	res = reg.Invoke(ctx, "no-such-tool", nil)
	assert.Equal(t, tool.StatusError, res.Status)
	assert.Contains(t, res.Err, "unknown tool")
}

func TestRegistryRecoversPanic(t *testing.T) {
	reg := tool.NewRegistry(nil)
	reg.Register(&toolMock{
		name: "boom",
		ExecuteFunc: func(_ context.Context, _ map[string]any) tool.Result {
			panic("broken")
		},
	})

	res := reg.Invoke(context.Background(), "boom", nil)

	assert.Equal(t, tool.StatusError, res.Status)
	assert.Contains(t, res.Err, "panicked")
}

func TestRegistryListOrder(t *testing.T) {
	reg := tool.NewRegistry(nil)
	for _, name := range []string{"c", "a", "b"} {
		reg.Register(&toolMock{name: name})
	}

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].Name)
	assert.Equal(t, "a", list[1].Name)
	assert.Equal(t, "b", list[2].Name)

	assert.True(t, reg.Contains("a"))
	assert.False(t, reg.Contains("z"))
}
