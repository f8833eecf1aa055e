//go:build vosk

package main

import _ "transcribe4all/internal/app/recognizer/vosk"
