package main

import (
	"os"

	consolechatcmder "github.com/papercomputeco/consolechat/cmd/consolechat"
)

func main() {
	cmd := consolechatcmder.NewConsoleChatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
