package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	sent         []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, message{topic: topic, retained: retained, payload: payload.([]byte)})
	return newToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestAppliances(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, "home/energy/")

	err := p.Appliances([]ledger.Entry{{Name: "Fan", Hours: 10}, {Name: "TV", Hours: 3}})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Equal(t, "home/energy/appliances", c.sent[0].topic)
	assert.True(t, c.sent[0].retained)

	var got map[string]int
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &got))
	assert.Equal(t, map[string]int{"Fan": 10, "TV": 3}, got)
}

func TestPrediction(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, "")

	err := p.Prediction(forecast.Prediction{PredictedBill: 360, RoundedBill: 360})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Equal(t, "wattwise/prediction", c.sent[0].topic)
	assert.False(t, c.sent[0].retained)
	assert.Contains(t, string(c.sent[0].payload), `"predicted_bill":360`)
}

func TestPublishError(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := newPublisher(c, "x")

	err := p.Appliances(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x/appliances")
	assert.Contains(t, err.Error(), "not connected")
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	newPublisher(c, "").Close()
	assert.True(t, c.disconnected)
}

func TestNew_RequiresBroker(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
