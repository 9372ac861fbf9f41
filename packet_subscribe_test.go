package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackSubscribeRoundTrip(t *testing.T) {
	v := VariablesSubscribe{
		PacketIdentifier: 10,
		TopicFilters: []SubscribeRequest{
			{Topic: "a/b", QoS: QoS0},
			{Topic: "c/d", QoS: QoS2},
		},
	}
	buf := make([]byte, v.size())
	n, err := packSubscribe(buf, v)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, gn, err := unpackSubscribe(buf, uint32(n))
	require.NoError(t, err)
	require.Equal(t, n, gn)
	require.Equal(t, v, got)
}

func TestSubscribeValidateRejectsZeroPacketIdentifier(t *testing.T) {
	v := VariablesSubscribe{TopicFilters: []SubscribeRequest{{Topic: "a"}}}
	require.Error(t, v.validate())
}

func TestSubscribeValidateRejectsEmptyFilterList(t *testing.T) {
	v := VariablesSubscribe{PacketIdentifier: 1}
	require.Error(t, v.validate())
}

func TestSubscribeValidateRejectsTooManyTopics(t *testing.T) {
	filters := make([]SubscribeRequest, maxTopicFilters+1)
	for i := range filters {
		filters[i] = SubscribeRequest{Topic: "t"}
	}
	v := VariablesSubscribe{PacketIdentifier: 1, TopicFilters: filters}
	require.ErrorIs(t, v.validate(), KindSubscribeTooManyTopics)
}

func TestUnsubscribeRoundTrip(t *testing.T) {
	v := VariablesUnsubscribe{PacketIdentifier: 5, TopicFilters: []string{"a/b", "c/d/e"}}
	buf := make([]byte, v.size())
	n, err := packUnsubscribe(buf, v)
	require.NoError(t, err)

	got, gn, err := unpackUnsubscribe(buf, uint32(n))
	require.NoError(t, err)
	require.Equal(t, n, gn)
	require.Equal(t, v, got)
}

func TestSubackRoundTrip(t *testing.T) {
	v := VariablesSuback{PacketIdentifier: 3, ReturnCodes: []SubackReturnCode{QoS0, QoS2, QoSSubfail}}
	buf := make([]byte, v.size())
	n, err := packSuback(buf, v)
	require.NoError(t, err)

	got, gn, err := unpackSuback(buf, uint32(n))
	require.NoError(t, err)
	require.Equal(t, n, gn)
	require.Equal(t, v, got)
}
