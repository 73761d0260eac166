package formatter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dep2p/go-remoting/pkg/types"
)

func roundTrip(t *testing.T, s *Stage, payload proto.Message) *types.Message {
	t.Helper()
	ctx := context.Background()

	out := types.NewMessage(payload)
	require.NoError(t, s.Outbound(ctx, out))
	require.NotEmpty(t, out.Body)

	in := &types.Message{Body: out.Body}
	require.NoError(t, s.Inbound(ctx, in))
	return in
}

// withUnknownField 构造带未知字段（编号 99）的 StringValue 信封
func withUnknownField(t *testing.T, typeURL string) []byte {
	t.Helper()
	value, err := proto.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)
	value = protowire.AppendTag(value, 99, protowire.VarintType)
	value = protowire.AppendVarint(value, 7)

	body, err := proto.Marshal(&anypb.Any{TypeUrl: typeURL, Value: value})
	require.NoError(t, err)
	return body
}

func TestFormatter_RoundTrip(t *testing.T) {
	for _, v := range []types.Versioning{types.VersioningStrict, types.VersioningTolerant} {
		t.Run(v.String(), func(t *testing.T) {
			s := New(Config{Versioning: v})
			assert.Equal(t, StageName, s.Name())

			in := roundTrip(t, s, wrapperspb.String("ping"))
			assert.True(t, proto.Equal(wrapperspb.String("ping"), in.Payload.(proto.Message)))

			nested, err := structpb.NewStruct(map[string]any{"host": "HostA", "port": 8080})
			require.NoError(t, err)
			in = roundTrip(t, s, nested)
			assert.True(t, proto.Equal(nested, in.Payload.(proto.Message)))
		})
	}
	t.Log("✅ 两种版本策略下编解码往返一致")
}

func TestFormatter_NotProto(t *testing.T) {
	s := New(Config{})
	err := s.Outbound(context.Background(), types.NewMessage("plain string"))
	assert.ErrorIs(t, err, ErrNotProtoMessage)

	err = s.Inbound(context.Background(), &types.Message{})
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestFormatter_UnknownFields(t *testing.T) {
	body := withUnknownField(t, "type.googleapis.com/google.protobuf.StringValue")

	strict := New(Config{Versioning: types.VersioningStrict})
	err := strict.Inbound(context.Background(), &types.Message{Body: body})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	tolerant := New(Config{Versioning: types.VersioningTolerant})
	msg := &types.Message{Body: body}
	require.NoError(t, tolerant.Inbound(context.Background(), msg))
	got := msg.Payload.(*wrapperspb.StringValue)
	assert.Equal(t, "hello", got.GetValue())
	assert.Empty(t, got.ProtoReflect().GetUnknown())

	t.Log("✅ Strict 拒绝未知字段，Tolerant 丢弃未知字段")
}

func TestFormatter_NameDrift(t *testing.T) {
	value, err := proto.Marshal(wrapperspb.String("drift"))
	require.NoError(t, err)
	body, err := proto.Marshal(&anypb.Any{
		TypeUrl: "type.googleapis.com/google.protobuf.v2.StringValue",
		Value:   value,
	})
	require.NoError(t, err)

	strict := New(Config{Versioning: types.VersioningStrict})
	err = strict.Inbound(context.Background(), &types.Message{Body: body})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	tolerant := New(Config{Versioning: types.VersioningTolerant})
	msg := &types.Message{Body: body}
	require.NoError(t, tolerant.Inbound(context.Background(), msg))
	assert.Equal(t, "drift", msg.Payload.(*wrapperspb.StringValue).GetValue())

	// 短名也找不到时仍然失败
	body, err = proto.Marshal(&anypb.Any{TypeUrl: "type.googleapis.com/acme.NoSuchType", Value: value})
	require.NoError(t, err)
	err = tolerant.Inbound(context.Background(), &types.Message{Body: body})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestFormatter_FilterLow(t *testing.T) {
	s := New(Config{
		FilterLevel: types.TypeFilterLow,
		Allowed:     []protoreflect.FullName{"google.protobuf.StringValue"},
	})

	roundTrip(t, s, wrapperspb.String("allowed"))

	err := s.Outbound(context.Background(), types.NewMessage(wrapperspb.Int64(1)))
	assert.ErrorIs(t, err, types.ErrTypeFiltered)

	full := New(Config{})
	out := types.NewMessage(wrapperspb.Int64(1))
	require.NoError(t, full.Outbound(context.Background(), out))
	err = s.Inbound(context.Background(), &types.Message{Body: out.Body})
	assert.ErrorIs(t, err, types.ErrTypeFiltered)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Ping", shortName("type.googleapis.com/acme.v1.Ping"))
	assert.Equal(t, "Ping", shortName("Ping"))
	assert.Equal(t, "Ping", shortName("acme.Ping"))
}
