package notify

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severn-soft/pricegrab/pkg/telegram"
)

type fakeClient struct {
	messages  []string
	documents []string
	docErrs   []error
}

func (f *fakeClient) SendMessage(_ context.Context, _, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeClient) SendDocument(_ context.Context, _, path, _ string) error {
	f.documents = append(f.documents, path)
	if len(f.docErrs) == 0 {
		return nil
	}
	err := f.docErrs[0]
	f.docErrs = f.docErrs[1:]
	return err
}

func TestDeliverMessageThenDocument(t *testing.T) {
	c := &fakeClient{}
	n := New(c, "42")

	require.NoError(t, n.Deliver(context.Background(), "готово", "out.xlsx"))
	assert.Equal(t, []string{"готово"}, c.messages)
	assert.Equal(t, []string{"out.xlsx"}, c.documents)
}

func TestDeliverRetriesDocumentOnce(t *testing.T) {
	c := &fakeClient{docErrs: []error{&telegram.APIError{StatusCode: 504, Description: "gateway timeout"}}}
	n := New(c, "42")

	require.NoError(t, n.Deliver(context.Background(), "готово", "out.xlsx"))
	assert.Len(t, c.documents, 2)
}

func TestDeliverGivesUpAfterSecondFailure(t *testing.T) {
	c := &fakeClient{docErrs: []error{
		&telegram.APIError{StatusCode: 502, Description: "bad gateway"},
		&telegram.APIError{StatusCode: 502, Description: "bad gateway"},
	}}
	n := New(c, "42")

	err := n.Deliver(context.Background(), "готово", "out.xlsx")
	assert.Error(t, err)
	assert.Len(t, c.documents, 2)
}

func TestDeliverDoesNotRetryPermanentRejection(t *testing.T) {
	c := &fakeClient{docErrs: []error{&telegram.APIError{StatusCode: 403, Description: "bot was blocked"}}}
	n := New(c, "42")

	err := n.Deliver(context.Background(), "готово", "out.xlsx")
	assert.Error(t, err)
	assert.Len(t, c.documents, 1)
}

func TestDeliverRetriesNetworkFlap(t *testing.T) {
	c := &fakeClient{docErrs: []error{eris.New("post document: i/o timeout")}}
	n := New(c, "42")

	require.NoError(t, n.Deliver(context.Background(), "готово", "out.xlsx"))
	assert.Len(t, c.documents, 2)
}
