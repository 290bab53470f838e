package poli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

func TestBuildSenderDefaultsToSimulator(t *testing.T) {
	sender, mode, reason := BuildSender(SenderConfig{}, logging.Discard())
	assert.IsType(t, &Simulator{}, sender)
	assert.Equal(t, ModeSimulate, mode)
	assert.Empty(t, reason)
}

func TestBuildSenderLive(t *testing.T) {
	sender, mode, reason := BuildSender(SenderConfig{
		Mode:       "LIVE",
		APIToken:   "tok",
		UserID:     "77",
		TemplateID: "abordagem2",
	}, logging.Discard())
	assert.IsType(t, &Pipeline{}, sender)
	assert.Equal(t, ModeLive, mode)
	assert.Empty(t, reason)
}

func TestBuildSenderLiveMissingCredentialsFallsBack(t *testing.T) {
	sender, mode, reason := BuildSender(SenderConfig{Mode: ModeLive, TemplateID: "t"}, logging.Discard())
	assert.IsType(t, &Simulator{}, sender)
	assert.Equal(t, ModeSimulate, mode)
	assert.Contains(t, reason, "POLI_API_TOKEN missing")
	assert.Contains(t, reason, "USER_ID missing")
}

func TestBuildSenderLiveMissingTemplateFallsBack(t *testing.T) {
	_, mode, reason := BuildSender(SenderConfig{Mode: ModeLive, APIToken: "tok", UserID: "1"}, logging.Discard())
	assert.Equal(t, ModeSimulate, mode)
	assert.Contains(t, reason, "template id required")
}

func TestBuildSenderUnknownMode(t *testing.T) {
	_, mode, reason := BuildSender(SenderConfig{Mode: "carrier-pigeon"}, nil)
	assert.Equal(t, ModeSimulate, mode)
	assert.Contains(t, reason, "carrier-pigeon")
}

func TestSimulatorLogsAndSucceeds(t *testing.T) {
	var buf bytes.Buffer
	sim := NewSimulator(logging.NewWithWriter(&buf, "info", "json"))

	err := sim.SendTemplateMessage(context.Background(), TemplateMessage{
		Phone:        "5511988887777",
		FirstName:    "Maria",
		OperatorName: "nosso time",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "starting template send")
	assert.Contains(t, out, "5511988887777")
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "simulated")
}

func TestSimulatorHonorsCanceledContext(t *testing.T) {
	sim := NewSimulator(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.SendTemplateMessage(ctx, TemplateMessage{Phone: "1", FirstName: "A"}), context.Canceled)
}
