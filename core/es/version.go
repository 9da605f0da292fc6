package es

import "log/slog"

// Version is the per-aggregate stream version. It is a monotonically
// increasing value starting from 1 for the creation event, and it is the
// basis of optimistic concurrency control: an aggregate at version N accepts
// only an event declaring version N+1.
type Version uint64

func (v Version) Uint64() uint64                         { return uint64(v) }
func (v Version) Next() Version                          { return v + 1 }
func (v Version) SlogAttr() slog.Attr                    { return newSlogVersionAttr("version", v) }
func (v Version) SlogAttrWithKey(key string) slog.Attr   { return newSlogVersionAttr(key, v) }
func newSlogVersionAttr(key string, v Version) slog.Attr { return slog.Uint64(key, uint64(v)) }
