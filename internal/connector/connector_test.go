package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCommandWaiter struct{ err error }

func (w fixedCommandWaiter) Wait() error { return w.err }

type fixedSelectWaiter struct {
	data *imap.SelectData
	err  error
}

func (w fixedSelectWaiter) Wait() (*imap.SelectData, error) { return w.data, w.err }

type fixedSearchWaiter struct {
	data *imap.SearchData
	err  error
}

func (w fixedSearchWaiter) Wait() (*imap.SearchData, error) { return w.data, w.err }

type fixedFetchWaiter struct {
	bufs []*imapclient.FetchMessageBuffer
	err  error
}

func (w fixedFetchWaiter) Collect() ([]*imapclient.FetchMessageBuffer, error) { return w.bufs, w.err }
func (w fixedFetchWaiter) Close() error                                      { return w.err }

type fixedListWaiter struct {
	entries []*imap.ListData
	err     error
}

func (w fixedListWaiter) Collect() ([]*imap.ListData, error) { return w.entries, w.err }

type fixedMoveWaiter struct{ err error }

func (w fixedMoveWaiter) Wait() (*imapclient.MoveData, error) { return nil, w.err }

type fixedCopyWaiter struct{ err error }

func (w fixedCopyWaiter) Wait() (*imap.CopyData, error) { return nil, w.err }

type fixedExpungeWaiter struct{ err error }

func (w fixedExpungeWaiter) Close() error { return w.err }

type fakeClient struct {
	loginErr    error
	listEntries []*imap.ListData
	listErr     error
	selectData  *imap.SelectData
	selectErr   error
	searchData  *imap.SearchData
	searchErr   error
	fetchBufs   []*imapclient.FetchMessageBuffer
	fetchErr    error
	moveErr     error
	copyErr     error
	storeErr    error
	expungeErr  error
}

func (f *fakeClient) Login(string, string) commandWaiter { return fixedCommandWaiter{f.loginErr} }
func (f *fakeClient) Logout() commandWaiter               { return fixedCommandWaiter{} }
func (f *fakeClient) Close() error                         { return nil }
func (f *fakeClient) List(string, string, *imap.ListOptions) listWaiter {
	return fixedListWaiter{f.listEntries, f.listErr}
}
func (f *fakeClient) Select(string, *imap.SelectOptions) selectWaiter {
	return fixedSelectWaiter{f.selectData, f.selectErr}
}
func (f *fakeClient) UIDSearch(*imap.SearchCriteria, *imap.SearchOptions) searchWaiter {
	return fixedSearchWaiter{f.searchData, f.searchErr}
}
func (f *fakeClient) Fetch(imap.NumSet, *imap.FetchOptions) fetchWaiter {
	return fixedFetchWaiter{f.fetchBufs, f.fetchErr}
}
func (f *fakeClient) Store(imap.NumSet, *imap.StoreFlags, *imap.StoreOptions) fetchWaiter {
	return fixedFetchWaiter{err: f.storeErr}
}
func (f *fakeClient) Move(imap.NumSet, string) moveWaiter { return fixedMoveWaiter{f.moveErr} }
func (f *fakeClient) Copy(imap.NumSet, string) copyWaiter { return fixedCopyWaiter{f.copyErr} }
func (f *fakeClient) UIDExpunge(imap.UIDSet) expungeWaiter {
	return fixedExpungeWaiter{f.expungeErr}
}

func TestSession_Select_ReturnsMessageCount(t *testing.T) {
	s := &Session{client: &fakeClient{selectData: &imap.SelectData{NumMessages: 7}}}
	n, err := s.Select("INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), n)
	assert.Equal(t, "INBOX", s.selected)
}

func TestCapUIDs_LimitsToMax(t *testing.T) {
	uids := []imap.UID{1, 2, 3, 4, 5}
	assert.Len(t, capUIDs(uids, 2), 2)
	assert.Len(t, capUIDs(uids, 0), 5)
	assert.Len(t, capUIDs(uids, 10), 5)
}

func TestSession_SearchUnseen_PropagatesClientError(t *testing.T) {
	s := &Session{client: &fakeClient{searchErr: errors.New("boom")}}
	_, err := s.SearchUnseen(10)
	assert.Error(t, err)
}

func TestSession_Move_FallsBackToCopyStoreExpunge(t *testing.T) {
	s := &Session{client: &fakeClient{moveErr: errors.New("MOVE not supported")}}
	err := s.Move(imap.UID(1), "Processed")
	assert.NoError(t, err)
}

func TestSession_Move_CopyFailurePropagates(t *testing.T) {
	s := &Session{client: &fakeClient{
		moveErr: errors.New("no move"),
		copyErr: errors.New("no copy either"),
	}}
	err := s.Move(imap.UID(1), "Processed")
	assert.Error(t, err)
}

func TestSession_ListMailboxes(t *testing.T) {
	s := &Session{client: &fakeClient{listEntries: []*imap.ListData{
		{Mailbox: "INBOX", Delim: '/'},
		{Mailbox: "INBOX/Processed", Delim: '/'},
	}}}
	infos, err := s.ListMailboxes(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 2)
	assert.Equal(t, "/", infos[0].Delimiter)
}
