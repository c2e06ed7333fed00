// Command hashpw 生成后台管理员密码的 bcrypt 哈希，写入 config.yaml 的 admin.password_hash。
package main

import (
	"bufio"
	"fmt"
	"os"
	"sara-smart-go/pkg/hash"
	"strings"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "读取密码失败:", err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "密码不能为空")
		os.Exit(1)
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "生成哈希失败:", err)
		os.Exit(1)
	}
	fmt.Println(hashed)
}
