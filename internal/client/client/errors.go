package client

import (
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrorUnauthorized
)
