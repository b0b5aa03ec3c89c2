// Package main provides localization for the cliprec CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":   "出力先",
		"Capture":  "キャプチャ",
		"Encoding": "エンコード",
		"Control":  "操作画面",
		"Logging":  "ログ",

		// Root command
		"Record video clips while a key is held and join them into one MP4": "キーを押している間だけ動画を記録し、1つのMP4に結合",
		"cliprec records a camera in segments. Hold Space to record a clip, Backspace removes the last clip and Enter joins all clips into one video.": "cliprecはカメラ映像をセグメント単位で記録します。Spaceを押している間クリップを記録し、Backspaceで直前のクリップを削除、Enterで全クリップを1本の動画に結合します。",

		// Record command
		"Record clips from a camera": "カメラからクリップを記録",
		"Open the control surface in a browser, hold Space to record and press Enter to save.": "ブラウザで操作画面を開き、Spaceを押している間記録し、Enterで保存します。",

		// Stitch, recover and probe commands
		"Join MP4 segments into one video":         "MP4セグメントを1本の動画に結合",
		"Save the clips of an interrupted session": "中断されたセッションのクリップを保存",
		"Show codec and duration of MP4 files":     "MP4ファイルのコーデックと再生時間を表示",

		// Version command
		"Show version information": "バージョン情報を表示",
		"cliprec version %s":       "cliprec バージョン %s",

		// Output flags
		"YAML configuration file":                                "YAML設定ファイル",
		"Output MP4 file path (required)":                        "出力MP4ファイルパス（必須）",
		"Output MP4 file path (default: output_<timestamp>.mp4)": "出力MP4ファイルパス（デフォルト: output_<日時>.mp4）",
		"Output MP4 file path (default: the session's output)":   "出力MP4ファイルパス（デフォルト: セッションの出力先）",
		"Directory for segment files (default: hidden directory beside the output)": "セグメントファイルのディレクトリ（デフォルト: 出力先の隣の隠しディレクトリ）",
		"Output session summary to file (Markdown format)":                          "セッションのサマリーをファイルに出力（Markdown形式）",
		"Session directory (required)":                                              "セッションディレクトリ（必須）",

		// Capture flags
		"Frame source (ffmpeg, test)": "フレームの入力元（ffmpeg, test）",
		"Capture device":              "キャプチャデバイス",
		"Capture width":               "キャプチャの幅",
		"Capture height":              "キャプチャの高さ",
		"Capture frame rate":          "キャプチャのフレームレート",
		"Capture pixel format (mjpeg, yuyv422, nv12, rgb24)": "キャプチャのピクセル形式（mjpeg, yuyv422, nv12, rgb24）",

		// Encoding flags
		"Encoder quality (high, medium, low)":        "エンコード品質（high, medium, low）",
		"Encoder speed (fastest, balanced, compact)": "エンコード速度（fastest, balanced, compact）",
		"Hardware encoder (none, nvenc, amf, qsv)":   "ハードウェアエンコーダー（none, nvenc, amf, qsv）",
		"Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)": "ffmpeg実行ファイルのパス（未指定時は環境変数FFMPEG_PATH、次にPATH）",

		// Control flags
		"Control surface address (empty to disable)": "操作画面のアドレス（空で無効）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Error messages
		"At least one segment is required":        "セグメントを1つ以上指定してください",
		"At least one file is required":           "ファイルを1つ以上指定してください",
		"No output path in journal, use --output": "ジャーナルに出力先がありません。--output を指定してください",
	})
}
