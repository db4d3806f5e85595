// Package live implements real-time duplex voice sessions over a
// websocket connection to a native-audio model.
//
// # Architecture
//
// The package provides these core components:
//
//   - Controller: the orchestrator wiring capture, VAD, transport,
//     playback, tool dispatch, and video into one lifecycle
//   - Session: the websocket transport with a typed frame protocol
//   - StateMachine: session states and response latency measurement
//   - Scheduler: gapless playback of streamed audio chunks
//   - Dispatcher: validation and acknowledgement of model tool calls
//   - Sampler: low-rate JPEG stills multiplexed into the session
//
// # Data Flow
//
//	Mic → gain → frame → downsample 16 kHz → VAD → PCM encode → socket
//	Socket → decode 24 kHz PCM → Scheduler → speaker
//	Socket → toolCall → Dispatcher → host callback + ack
//
// # State Machine
//
// A session moves through connecting, listening, thinking, speaking,
// and searching. The error state admits only closed; closed is
// terminal. Silence hands listening to thinking, the first audio chunk
// of a response enters speaking, and a drained playback queue or an
// interrupt returns the session to listening.
package live
