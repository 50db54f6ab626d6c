package service

import "errors"

// 业务层错误，由 HTTP 层映射为对应的响应码。
var (
	// ErrDomainNotAllowed 域名不可用于创建邮箱
	ErrDomainNotAllowed = errors.New("domain not allowed")
	// ErrPrefixInvalid 邮箱前缀不合法
	ErrPrefixInvalid = errors.New("prefix invalid")
	// ErrRecipientNotFound 收件地址未命中任何邮箱
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrDomainExists 域名已被注册
	ErrDomainExists = errors.New("domain already exists")
	// ErrDomainInvalid 域名格式不合法
	ErrDomainInvalid = errors.New("domain invalid")
	// ErrNotDomainOwner 当前用户不是该域名的所有者
	ErrNotDomainOwner = errors.New("not domain owner")
	// ErrForwardTargetInvalid 转发目标地址不合法
	ErrForwardTargetInvalid = errors.New("forward target invalid")
	// ErrMessageTooLarge 入站邮件超出大小上限
	ErrMessageTooLarge = errors.New("message too large")
)
