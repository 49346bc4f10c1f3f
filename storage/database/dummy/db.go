package dummydb

import (
	"sync"

	"github.com/trezcool/rekodi/core/records"
)

type (
	DB struct {
		state *stateTable
	}

	stateTable struct {
		sync.RWMutex
		state records.State
	}
)

func Open() (*DB, error) {
	db := &DB{
		state: &stateTable{state: records.NewState()},
	}
	return db, nil
}
