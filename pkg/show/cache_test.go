package show

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronodb/nodecore/pkg/types"
)

type rowIter struct {
	total int
	read  int
}

func newHandlers(total int) *Handlers {
	return &Handlers{
		Meta: func(req types.ShowReq) ([]types.Column, interface{}, error) {
			return []types.Column{{Name: "name", Bytes: 8}}, &rowIter{total: total}, nil
		},
		Retrieve: func(iter interface{}, rowsToRead int) ([]byte, int, error) {
			it := iter.(*rowIter)
			remaining := it.total - it.read
			n := rowsToRead
			if n > remaining {
				n = remaining
			}
			it.read += n
			return make([]byte, n*8), n, nil
		},
	}
}

func TestShowPaginatesAcrossMultiplePages(t *testing.T) {
	c := New(time.Minute)
	c.Register(types.ShowTables, newHandlers(250))

	rsp, err := c.ProcessShow(types.ShowReq{Type: types.ShowTables})
	require.NoError(t, err)
	require.NoError(t, c.SetSessionRowCount(rsp.ShowID, 250))

	var pages []types.RetrieveRsp
	for {
		page, err := c.ProcessRetrieve(types.RetrieveReq{ShowID: rsp.ShowID})
		require.NoError(t, err)
		pages = append(pages, page)
		if page.Completed {
			break
		}
	}

	require.Len(t, pages, 3)
	assert.Equal(t, PageSize, pages[0].NumOfRows)
	assert.Equal(t, PageSize, pages[1].NumOfRows)
	assert.Equal(t, 50, pages[2].NumOfRows)
	assert.True(t, pages[2].Completed)
	assert.False(t, pages[0].Completed)
}

func TestShowExactMultipleOfPageSizeCompletesOnLastFullPage(t *testing.T) {
	c := New(time.Minute)
	c.Register(types.ShowTables, newHandlers(200))

	rsp, err := c.ProcessShow(types.ShowReq{Type: types.ShowTables})
	require.NoError(t, err)
	require.NoError(t, c.SetSessionRowCount(rsp.ShowID, 200))

	p1, err := c.ProcessRetrieve(types.RetrieveReq{ShowID: rsp.ShowID})
	require.NoError(t, err)
	assert.Equal(t, PageSize, p1.NumOfRows)
	assert.False(t, p1.Completed)

	p2, err := c.ProcessRetrieve(types.RetrieveReq{ShowID: rsp.ShowID})
	require.NoError(t, err)
	assert.Equal(t, PageSize, p2.NumOfRows)
	assert.True(t, p2.Completed)
}

func TestFreeOnlyRetrieveForceRemovesWithoutReading(t *testing.T) {
	c := New(time.Minute)
	c.Register(types.ShowTables, newHandlers(50))

	rsp, err := c.ProcessShow(types.ShowReq{Type: types.ShowTables})
	require.NoError(t, err)
	require.NoError(t, c.SetSessionRowCount(rsp.ShowID, 50))

	page, err := c.ProcessRetrieve(types.RetrieveReq{ShowID: rsp.ShowID, FreeOnly: true})
	require.NoError(t, err)
	assert.True(t, page.Completed)
	assert.Equal(t, 0, page.NumOfRows)
	assert.Equal(t, 0, c.Len())
}

func TestRetrieveOnUnknownSessionFails(t *testing.T) {
	c := New(time.Minute)
	_, err := c.ProcessRetrieve(types.RetrieveReq{ShowID: 999})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidShowObject, types.CodeOf(err))
}

func TestCompactColumnsPacksLiveRowsTogether(t *testing.T) {
	capacity, rows := 4, 2
	bytesPerCol := []int{2, 4}

	data := make([]byte, 2*capacity+4*capacity)
	copy(data[0:2], []byte{1, 2})
	copy(data[2:4], []byte{3, 4})
	copy(data[2*capacity:2*capacity+4], []byte{5, 6, 7, 8})
	copy(data[2*capacity+4:2*capacity+8], []byte{9, 10, 11, 12})

	CompactColumns(data, capacity, rows, bytesPerCol)

	assert.Equal(t, []byte{1, 2, 3, 4}, data[0:4])
	assert.Equal(t, []byte{5, 6, 7, 8, 9, 10, 11, 12}, data[4:12])
}

func TestCompactColumnsNoopWhenFull(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	orig := append([]byte(nil), data...)
	CompactColumns(data, 2, 2, []int{1, 1})
	assert.Equal(t, orig, data)
}
