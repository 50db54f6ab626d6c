package domain

// MaxAttachmentBytes 单个附件内容的大小上限。
const MaxAttachmentBytes = 20 * 1024 * 1024 // 20MB

// Attachment 表示邮件附件。
//
// 附件归属于唯一的一封邮件，随邮件级联删除；
// Content 保存解码后的原始字节，存取必须精确往返。
type Attachment struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`            // 附件唯一标识
	MessageID   string `json:"messageId" gorm:"type:varchar(36);index;not null"` // 所属邮件ID
	Filename    string `json:"filename" gorm:"type:varchar(255)"`                // 文件名
	ContentType string `json:"contentType" gorm:"type:varchar(100)"`             // MIME类型
	Size        int64  `json:"size"`                                             // 大小（字节）
	Content     []byte `json:"-"`                                                // 解码后的附件内容
}
