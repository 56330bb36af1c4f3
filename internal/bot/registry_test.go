package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRegistry_FindNormalizesToken(t *testing.T) {
	cmd := &stubCommand{name: "Ticket"}
	registry := NewCommandRegistry(nil, cmd)

	assert.Same(t, CommandHandler(cmd), registry.Find("ticket"))
	assert.Same(t, CommandHandler(cmd), registry.Find("TICKET"))
	assert.Same(t, CommandHandler(cmd), registry.Find("  ticket "))
	assert.Nil(t, registry.Find("reset"))
}

func TestCommandRegistry_FirstRegistrationWins(t *testing.T) {
	first := &stubCommand{name: "ticket"}
	second := &stubCommand{name: "TICKET"}
	registry := NewCommandRegistry(nil, first, second)

	assert.Same(t, CommandHandler(first), registry.Find("ticket"))
	assert.Len(t, registry.Handlers(), 1)
}

func TestCommandRegistry_HandlersSortedByName(t *testing.T) {
	registry := NewCommandRegistry(nil,
		&stubCommand{name: "ticket"},
		&stubCommand{name: "help"},
		&stubCommand{name: "reset"},
	)

	handlers := registry.Handlers()
	require.Len(t, handlers, 3)
	assert.Equal(t, "help", handlers[0].Name())
	assert.Equal(t, "reset", handlers[1].Name())
	assert.Equal(t, "ticket", handlers[2].Name())
}

func TestNormalizeCommandName(t *testing.T) {
	assert.Equal(t, "ticket", NormalizeCommandName(" Ticket "))
	assert.Equal(t, "", NormalizeCommandName("   "))
}
