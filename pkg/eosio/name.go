package eosio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

// NameLen 账户名编码后的字节数
const NameLen = 8

// DecodeName 将 get_table_rows(json=false) 返回的十六进制行解析为账户名，只读取前 8 字节
func DecodeName(row string) (string, error) {
	raw, err := hex.DecodeString(row)
	if err != nil {
		return "", fmt.Errorf("decode name row: %w", err)
	}
	if len(raw) < NameLen {
		return "", fmt.Errorf("decode name row: need %d bytes, got %d", NameLen, len(raw))
	}
	return NameFromUint64(binary.LittleEndian.Uint64(raw[:NameLen])), nil
}

// NameFromUint64 base32 解码，末尾的 '.' 会被去掉
func NameFromUint64(value uint64) string {
	var out [13]byte
	tmp := value
	for i := 0; i <= 12; i++ {
		if i == 0 {
			out[12-i] = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			out[12-i] = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
	}
	return strings.TrimRight(string(out[:]), ".")
}

// NameToUint64 账户名编码，非法字符按 '.' 处理
func NameToUint64(name string) uint64 {
	var value uint64
	for i := 0; i < len(name) && i < 12; i++ {
		value |= (charToSymbol(name[i]) & 0x1f) << (64 - 5*(i+1))
	}
	if len(name) > 12 {
		value |= charToSymbol(name[12]) & 0x0f
	}
	return value
}

// EncodeName 生成与链上一致的十六进制行，测试和本地工具使用
func EncodeName(name string) string {
	var raw [NameLen]byte
	binary.LittleEndian.PutUint64(raw[:], NameToUint64(name))
	return hex.EncodeToString(raw[:])
}

func charToSymbol(c byte) uint64 {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1
	default:
		return 0
	}
}
