package utils

import "errors"

// ErrorRecordNotFound is the shared not-found sentinel for business-scoped
// lookups. Model functions map gorm.ErrRecordNotFound onto it so handlers
// never import gorm just to classify an error.
var ErrorRecordNotFound = errors.New("record not found")
