package dummydb

import (
	"sync"

	"github.com/shulehub/shule/core/cart"
	"github.com/shulehub/shule/core/content"
)

type (
	DB struct {
		content *contentTable
		cart    *cartTable
	}

	contentTable struct {
		sync.RWMutex
		table map[string]*content.Content
	}

	cartTable struct {
		sync.RWMutex
		table map[string]*cart.Line
	}
)

func Open() (*DB, error) {
	db := &DB{
		content: &contentTable{table: make(map[string]*content.Content)},
		cart:    &cartTable{table: make(map[string]*cart.Line)},
	}
	return db, nil
}

// Reset empties all tables; tests use it to isolate themselves.
func (db *DB) Reset() {
	db.content.Lock()
	db.content.table = make(map[string]*content.Content)
	db.content.Unlock()

	db.cart.Lock()
	db.cart.table = make(map[string]*cart.Line)
	db.cart.Unlock()
}
