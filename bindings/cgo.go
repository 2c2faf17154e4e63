package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	dbsql "database/sql"
	"sync"
	"unsafe"

	"github.com/goccy/go-json"

	"github.com/swoiow/libsql-lighter/db"
)

// Handle represents an open database engine
type Handle struct {
	engine *db.Engine
}

var (
	handleMu   sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

// Response is the JSON envelope every exported call returns
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type QueryResponse struct {
	Columns     []string `json:"columns"`
	Data        [][]any  `json:"data"`
	RecordsRead int      `json:"records_read"`
}

type ExecResponse struct {
	RowsAffected int64  `json:"rows_affected"`
	Generation   string `json:"generation,omitempty"`
}

type SyncResponse struct {
	Generation string `json:"generation"`
}

func lookupHandle(handle C.int) (*Handle, bool) {
	handleMu.Lock()
	defer handleMu.Unlock()
	h, ok := handles[int(handle)]
	return h, ok
}

//export lighter_open
func lighter_open(url *C.char) C.int {
	cfg, err := db.ParseURL(C.GoString(url))
	if err != nil {
		return -1
	}

	engine, err := db.NewEngine(cfg)
	if err != nil {
		return -1
	}

	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{engine: engine}

	return C.int(handle)
}

//export lighter_close
func lighter_close(handle C.int) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if h, ok := handles[int(handle)]; ok {
		h.engine.Close()
		delete(handles, int(handle))
	}
}

//export lighter_exec
func lighter_exec(handle C.int, sql *C.char) *C.char {
	h, ok := lookupHandle(handle)
	if !ok {
		return makeErrorResponse("Invalid handle")
	}

	ctx := context.Background()
	var affected int64
	err := h.engine.WithTx(ctx, func(tx *dbsql.Tx) error {
		result, err := tx.ExecContext(ctx, C.GoString(sql))
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	data, _ := json.Marshal(ExecResponse{
		RowsAffected: affected,
		Generation:   h.engine.LastGeneration(),
	})
	return makeResponse(Response{Success: true, Type: "exec", Result: data})
}

//export lighter_query
func lighter_query(handle C.int, sql *C.char) *C.char {
	h, ok := lookupHandle(handle)
	if !ok {
		return makeErrorResponse("Invalid handle")
	}

	frame, err := h.engine.ReadSQL(context.Background(), C.GoString(sql))
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	qr := QueryResponse{
		Columns:     frame.ColumnNames(),
		Data:        make([][]any, 0, frame.NumRows()),
		RecordsRead: frame.NumRows(),
	}
	for _, row := range frame.Rows {
		qr.Data = append(qr.Data, row)
	}

	data, _ := json.Marshal(qr)
	return makeResponse(Response{Success: true, Type: "query", Result: data})
}

//export lighter_sync
func lighter_sync(handle C.int) *C.char {
	h, ok := lookupHandle(handle)
	if !ok {
		return makeErrorResponse("Invalid handle")
	}

	generation, err := h.engine.Sync(context.Background())
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	data, _ := json.Marshal(SyncResponse{Generation: generation})
	return makeResponse(Response{Success: true, Type: "sync", Result: data})
}

//export lighter_free
func lighter_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeResponse(resp Response) *C.char {
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func makeErrorResponse(msg string) *C.char {
	return makeResponse(Response{Success: false, Error: msg})
}

func main() {}
