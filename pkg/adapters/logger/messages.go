package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Recording %s to %s":                           "%s を %s に記録します",
		"Session %s started in %s":                     "セッション %s を %s で開始しました",
		"Output saved to %s":                           "出力を %s に保存しました",
		"Output saved to %s (%d segments, %.2f s)":     "出力を %s に保存しました（%d セグメント、%.2f 秒）",
		"Video saved to %s (%d clips, %.2fs)":          "動画を %s に保存しました（%d クリップ、%.2f 秒）",
		"Interrupted, shutting down...":                "中断されました。シャットダウン中...",
		"Session interrupted: %d segments kept in %s":  "セッションが中断されました: %d 個のセグメントを %s に保持しています",
		"Session directory %s not removed: %v":         "セッションディレクトリ %s を削除できませんでした: %v",
		"Run 'cliprec recover --dir %s' to save the kept clips": "残ったクリップを保存するには 'cliprec recover --dir %s' を実行してください",
		"%s stopped: %v":                               "%s が停止しました: %v",
		"Summary saved to %s":                          "サマリーを %s に保存しました",
		"Failed to write summary: %s":                  "サマリーの書き込みに失敗しました: %s",

		// Capture
		"Using ffmpeg at %s":        "ffmpeg を使用します: %s",
		"Capturing from %s":         "%s からキャプチャ中",
		"Capture started (pid %d)":  "キャプチャを開始しました (pid %d)",
		"Rejected frame: %v":        "フレームを破棄しました: %v",

		// Router
		"Frame %d dropped: recorder blocked for %v (%d dropped)": "フレーム %d を破棄: レコーダーが %v ブロック (%d 件破棄)",
		"Preview decode failed for frame %d: %v":                 "フレーム %d のプレビューのデコードに失敗しました: %v",
		"Preview encode failed for frame %d: %v":                 "フレーム %d のプレビューのエンコードに失敗しました: %v",

		// Recorder
		"Segment %d started: %s":                  "セグメント %d を開始: %s",
		"Segment %d saved":                        "セグメント %d を保存しました",
		"Segment %d saved: %d frames, %.2fs":      "セグメント %d を保存しました: %d フレーム, %.2f 秒",
		"Segment %d deleted":                      "セグメント %d を削除しました",
		"Discarded empty segment %d":              "空のセグメント %d を破棄しました",
		"Discarded open segment %d":               "記録中のセグメント %d を破棄しました",
		"Failed to discard empty segment %d: %v":  "空のセグメント %d の破棄に失敗しました: %v",
		"Failed to discard segment %d: %v":        "セグメント %d の破棄に失敗しました: %v",
		"Could not probe %s, using frame timestamps: %v": "%s の再生時間を取得できません。フレームのタイムスタンプを使用します: %v",
		"Rejected %s in %s: %v":                   "%s を %s 状態で拒否しました: %v",
		"Recording error: %v":                     "記録エラー: %v",
		"Failed to remove session journal: %v":    "セッションジャーナルの削除に失敗しました: %v",

		// Encoder supervisor
		"Running %s %v":                               "%s %v を実行中",
		"Encoder started for %s (pid %d)":             "%s のエンコーダーを開始しました (pid %d)",
		"Encoder finished %s: %d frames, %d bytes in": "エンコーダーが %s を完了: %d フレーム, 入力 %d バイト",
		"Failed to remove %s: %v":                     "%s の削除に失敗しました: %v",

		// Stitcher
		"Stitching %d segments into %s":                         "%d 個のセグメントを %s に結合中",
		"Concatenating %d segments via %s":                      "%d 個のセグメントを %s で連結中",
		"Could not probe %s: %v":                                "%s の再生時間を取得できません: %v",
		"Output duration %.2fs differs from segment total %.2fs": "出力の再生時間 %.2f 秒がセグメント合計 %.2f 秒と異なります",
		"Failed to remove segment %s: %v":                       "セグメント %s の削除に失敗しました: %v",
		"Failed to remove manifest %s: %v":                      "マニフェスト %s の削除に失敗しました: %v",

		// Recovery
		"Journaled segment missing: %s":      "ジャーナルにあるセグメントが見つかりません: %s",
		"Removed unfinished segment %s":      "未完了のセグメント %s を削除しました",
		"Recovered session %s: %d segments":  "セッション %s を復元しました: %d セグメント",
		"Journal not removed: %v":            "ジャーナルを削除できませんでした: %v",

		// Control surface
		"Control surface listening on http://%s":                "操作画面を http://%s で待ち受けています",
		"Client disconnected while recording, stopping segment": "記録中にクライアントが切断されたため、セグメントを停止します",
		"Stop after disconnect failed: %v":                      "切断後の停止に失敗しました: %v",
		"WebSocket upgrade failed: %v":                          "WebSocketのアップグレードに失敗しました: %v",
		"WebSocket write failed: %v":                            "WebSocketの書き込みに失敗しました: %v",
		"%s %s %d (%v)":                                         "%s %s %d (%v)",
	})
}
