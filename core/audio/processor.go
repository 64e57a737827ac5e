package audio

// DecodeHandle 一个正在进行的后台解码。Done 为 true 之后 Poll 才有意义。
type DecodeHandle interface {
	Done() bool
	Poll() (*PCM, error)
	Cancel()
}

// Decoder 宿主提供的异步解码能力。Start 不得阻塞。
type Decoder interface {
	Start(path string) DecodeHandle
}
