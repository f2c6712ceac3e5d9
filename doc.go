/*
Package cadence provides a real-time pattern sequencing and signal
synthesis engine.

Signal graphs are described with graph.Spec values and rendered
block-by-block. The engine package binds lazily-evaluated patterns to
scheduled note events and mixes live voices into a single stream, which
can be consumed by any sink: wav, mp3 or portaudio device.

The root package holds shared value types: non-interleaved sample
buffers, identifiers and note conversion helpers.
*/
package cadence
