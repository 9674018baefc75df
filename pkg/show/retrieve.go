package show

import (
	"github.com/chronodb/nodecore/pkg/types"
)

// RowCounter is an optional interface a Meta handler's returned iterator
// can implement to report its total row count up front, letting
// ProcessShow seed Session.NumOfRows without a separate SetSessionRowCount
// call. Handlers that don't know the count ahead of time (and plan to call
// SetSessionRowCount once it's known, e.g. after a first probing read)
// can leave it unimplemented.
type RowCounter interface {
	NumOfRows() int
}

// ProcessShow opens a new session for req and returns its schema, the Go
// rendition of mndProcessShowReq.
func (c *Cache) ProcessShow(req types.ShowReq) (types.ShowRsp, error) {
	h, ok := c.handlers[req.Type]
	if !ok {
		return types.ShowRsp{}, types.NewError(types.ErrInvalidShowObject, "no handler for show type "+string(req.Type))
	}

	columns, iter, err := h.Meta(req)
	if err != nil {
		return types.ShowRsp{}, err
	}

	s := &Session{
		ID:      c.nextShowID(),
		Type:    req.Type,
		Columns: columns,
		Iter:    iter,
	}
	if rc, ok := iter.(RowCounter); ok {
		s.NumOfRows = rc.NumOfRows()
	}
	s.touch(c.keepTime)

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.mu.Unlock()

	return types.ShowRsp{ShowID: s.ID, Columns: columns}, nil
}

// ProcessRetrieve fetches the next page for req.ShowID, the Go rendition of
// mndProcessRetrieveReq. It implements the same free/clamp/completed logic
// as the original: when req.FreeOnly is set, no rows are read and the
// session is always force-removed; otherwise up to PageSize rows are read
// and the session is force-removed exactly when this page completes the
// result set.
func (c *Cache) ProcessRetrieve(req types.RetrieveReq) (types.RetrieveRsp, error) {
	s, err := c.acquire(req.ShowID)
	if err != nil {
		return types.RetrieveRsp{}, err
	}

	h, ok := c.handlers[s.Type]
	if !ok || h.Retrieve == nil {
		c.release(s, true)
		return types.RetrieveRsp{}, types.NewError(types.ErrInvalidShowObject, "no retrieve handler for show type "+string(s.Type))
	}

	if req.FreeOnly {
		c.release(s, true)
		return types.RetrieveRsp{Completed: true}, nil
	}

	rowsToRead := s.NumOfRows - s.NumOfReads
	if rowsToRead > PageSize {
		rowsToRead = PageSize
	}
	if rowsToRead < 0 {
		rowsToRead = 0
	}

	var (
		data     []byte
		rowsRead int
	)
	if rowsToRead > 0 {
		data, rowsRead, err = h.Retrieve(s.Iter, rowsToRead)
		if err != nil {
			c.release(s, true)
			return types.RetrieveRsp{}, err
		}
		s.NumOfReads += rowsRead
	}

	completed := rowsRead == 0 || rowsToRead == 0 || (rowsRead == rowsToRead && s.NumOfRows == s.NumOfReads)

	c.release(s, completed)

	return types.RetrieveRsp{
		NumOfRows: rowsRead,
		Data:      data,
		Completed: completed,
	}, nil
}

// SetSessionRowCount records the total row count of an open session once
// it is known, so the retrieve loop above can compute rowsToRead. The
// session's ID exists only after ProcessShow returns, so this is called
// with that ID (for example by tests) rather than from inside Meta; an
// iterator that implements RowCounter makes the call unnecessary.
func (c *Cache) SetSessionRowCount(showID uint64, numOfRows int) error {
	c.mu.Lock()
	s, ok := c.sessions[showID]
	c.mu.Unlock()
	if !ok {
		return types.NewError(types.ErrInvalidShowObject, "show session already destroyed")
	}
	s.NumOfRows = numOfRows
	return nil
}
