package es

import "log/slog"

type (
	valueOption[T any] struct{ v T }

	LogOption        struct{ l *slog.Logger }
	MetricsOption    valueOption[ESMetrics]
	CompressorOption valueOption[Compressor]
	CipherOption     valueOption[Cipher]

	MapperOption interface{ applyToMapper(*Mapper) }

	uowOptions struct {
		log     *slog.Logger
		metrics ESMetrics
	}
	UnitOfWorkOption interface{ applyToUoW(*uowOptions) }
)

func WithLog(l *slog.Logger) LogOption             { return LogOption{l: l} }
func WithMetrics(m ESMetrics) MetricsOption        { return MetricsOption{v: m} }
func WithCompressor(c Compressor) CompressorOption { return CompressorOption{v: c} }
func WithCipher(c Cipher) CipherOption             { return CipherOption{v: c} }

func (o CompressorOption) applyToMapper(m *Mapper) { m.compressor = o.v }
func (o CipherOption) applyToMapper(m *Mapper)     { m.cipher = o.v }

func (o LogOption) applyToUoW(opts *uowOptions)     { opts.log = o.l }
func (o MetricsOption) applyToUoW(opts *uowOptions) { opts.metrics = o.v }
