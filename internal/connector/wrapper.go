package connector

import (
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// imapClientWrapper adapts *imapclient.Client to the imapClient interface.
type imapClientWrapper struct{ *imapclient.Client }

func (w *imapClientWrapper) Login(username, password string) commandWaiter {
	return w.Client.Login(username, password)
}

func (w *imapClientWrapper) Logout() commandWaiter { return w.Client.Logout() }

func (w *imapClientWrapper) List(ref, pattern string, options *imap.ListOptions) listWaiter {
	return w.Client.List(ref, pattern, options)
}

func (w *imapClientWrapper) Select(mailbox string, options *imap.SelectOptions) selectWaiter {
	return w.Client.Select(mailbox, options)
}

func (w *imapClientWrapper) UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter {
	return w.Client.UIDSearch(criteria, options)
}

func (w *imapClientWrapper) Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter {
	return w.Client.Fetch(numSet, options)
}

func (w *imapClientWrapper) Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter {
	return w.Client.Store(numSet, store, options)
}

func (w *imapClientWrapper) Move(numSet imap.NumSet, mailbox string) moveWaiter {
	return w.Client.Move(numSet, mailbox)
}

func (w *imapClientWrapper) Copy(numSet imap.NumSet, mailbox string) copyWaiter {
	return w.Client.Copy(numSet, mailbox)
}

func (w *imapClientWrapper) UIDExpunge(uids imap.UIDSet) expungeWaiter {
	return w.Client.UIDExpunge(uids)
}
