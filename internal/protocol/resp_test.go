package protocol

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandArray(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "foo", "bar"}, args)
}

func TestParseCommandInline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("PING\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"PING"}, args)
}

func TestParseCommandEmptyArrayRejected(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*0\r\n"))
	_, err := ParseCommand(r)
	assert.Error(t, err)
}

func TestParseCommandNullBulkStringInArray(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$-1\r\n"))
	args, err := ParseCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET", ""}, args)
}

func TestParseCommandReadsOneCommandAtATime(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("PING\r\nPING\r\n"))
	first, err := ParseCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"PING"}, first)

	second, err := ParseCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"PING"}, second)
}

func TestHasCompleteCommandPartialBulkString(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$3\r\nfo"))
	r.Peek(1 << 12)
	assert.False(t, HasCompleteCommand(r))
}

func TestHasCompleteCommandFullPipeline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"))
	r.Peek(1 << 12)
	assert.True(t, HasCompleteCommand(r))
}

func TestEncodeReplyNilIsNullBulkString(t *testing.T) {
	assert.Equal(t, []byte("$-1\r\n"), EncodeReply(nil))
}

func TestEncodeReplyStatusStringIsSimpleString(t *testing.T) {
	assert.Equal(t, []byte("+OK\r\n"), EncodeReply("OK"))
}

func TestEncodeReplyPlainStringIsBulkString(t *testing.T) {
	assert.Equal(t, []byte("$5\r\nhello\r\n"), EncodeReply("hello"))
}

func TestEncodeReplyInteger(t *testing.T) {
	assert.Equal(t, []byte(":42\r\n"), EncodeReply(42))
	assert.Equal(t, []byte(":42\r\n"), EncodeReply(int64(42)))
}

func TestEncodeReplyBool(t *testing.T) {
	assert.Equal(t, []byte(":1\r\n"), EncodeReply(true))
	assert.Equal(t, []byte(":0\r\n"), EncodeReply(false))
}

func TestEncodeReplyByteSlice(t *testing.T) {
	assert.Equal(t, []byte("$3\r\nfoo\r\n"), EncodeReply([]byte("foo")))
}

func TestEncodeReplyStringSliceIsArray(t *testing.T) {
	got := EncodeReply([]string{"a", "bb"})
	assert.Equal(t, []byte("*2\r\n$1\r\na\r\n$2\r\nbb\r\n"), got)
}

func TestEncodeReplyByteSliceSliceIsArray(t *testing.T) {
	got := EncodeReply([][]byte{[]byte("a"), []byte("bb")})
	assert.Equal(t, []byte("*2\r\n$1\r\na\r\n$2\r\nbb\r\n"), got)
}

func TestEncodeReplyInterfaceSliceRecurses(t *testing.T) {
	got := EncodeReply([]interface{}{"OK", 1, nil})
	assert.Equal(t, []byte("*3\r\n+OK\r\n:1\r\n$-1\r\n"), got)
}

func TestEncodeReplyError(t *testing.T) {
	got := EncodeReply(assert.AnError)
	assert.Equal(t, byte('-'), got[0])
}
