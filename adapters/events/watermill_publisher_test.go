package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailPublisherSend(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer pubSub.Close()

	publisher := NewEmailPublisher(pubSub, "")
	email := core.Email{
		Template:  core.TemplateVerification,
		Recipient: "ada@example.com",
		Variables: map[string]string{"name": "Ada", "verification_link": "http://localhost/verify"},
	}
	require.NoError(t, publisher.Send(context.Background(), email))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, DefaultEmailTopic)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()
		var got core.Email
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, email, got)
		assert.Equal(t, string(core.TemplateVerification), msg.Metadata.Get("template"))
	case <-ctx.Done():
		t.Fatal("email was not published")
	}
}
