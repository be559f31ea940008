package service

import (
	"fmt"

	"secure-health-server/internal/model"
)

// Тексты писем повторяют письма портала: приветствие с кодом входа,
// повторный запрос кода, доступ к файлу и к карте пациента.
// Сам код доступа — единственный секрет в письме, payload записи не вкладывается.

func welcomeMail(user *model.User, code string) (subject, text, html string) {
	subject = "Welcome to Secure Health - Your OTP for Login"
	text = fmt.Sprintf(`Hello %s,

Welcome to Secure Health!

Your account has been successfully registered.

Your OTP for login: %s

Use this OTP to login to your account.

Thank you,
Secure Health Team`, user.Username, code)
	html = fmt.Sprintf(`<html><body>
<h1>Secure Health</h1>
<h2>Hello %s,</h2>
<p>Welcome to Secure Health! Your account has been successfully registered.</p>
<p>Your OTP for login:</p>
<div style="font-size:24px;font-weight:bold">%s</div>
<p>Use this OTP to login to your account.</p>
<p>&copy; 2026 Secure Health. All rights reserved.</p>
</body></html>`, user.Username, code)
	return subject, text, html
}

func loginCodeMail(user *model.User, code string) (subject, text, html string) {
	subject = "Secure Health - OTP Login Request"
	text = fmt.Sprintf(`Hello %s,

You requested a new OTP for login.

Your OTP for login: %s

Use this OTP to login to your account.

If you didn't request this, please ignore this email.

Thank you,
Secure Health Team`, user.Username, code)
	html = fmt.Sprintf(`<html><body>
<h1>Secure Health</h1>
<h2>Hello %s,</h2>
<p>You requested a new OTP for login.</p>
<div style="font-size:24px;font-weight:bold">%s</div>
<p>If you didn't request this, please ignore this email.</p>
</body></html>`, user.Username, code)
	return subject, text, html
}

func fileAccessMail(file *model.PatientFile, code string) (subject, text, html string) {
	subject = "Secure Health - Access Patient File"
	text = fmt.Sprintf(`Hello,

You have been given access to patient medical records.

Patient: %s
File: %s

Use this OTP to access the file: %s

This OTP is valid for one-time use only.

Thank you,
Secure Health Team`, file.PatientName, file.Filename, code)
	html = fmt.Sprintf(`<html><body>
<h1>Secure Health</h1>
<p>You have been given access to patient medical records.</p>
<p><strong>Patient:</strong> %s<br><strong>File:</strong> %s</p>
<p>Use this OTP to access the file:</p>
<div style="font-size:24px;font-weight:bold">%s</div>
<p>This OTP is valid for one-time use only.</p>
<p>Confidentiality Notice: This email contains protected health information.</p>
</body></html>`, file.PatientName, file.Filename, code)
	return subject, text, html
}

func patientAccessMail(patient *model.Patient, code string) (subject, text, html string) {
	subject = "Secure Health - Access to Patient Medical Records"
	text = fmt.Sprintf(`Hello,

You have been granted access to patient medical records.

Patient: %s
Date of Birth: %s

Use this OTP to access the patient file: %s

This OTP is valid for one-time use only.

Thank you,
Secure Health Team`, patient.FullName, patient.DateOfBirth, code)
	html = fmt.Sprintf(`<html><body>
<h1>Secure Health</h1>
<p>You have been granted access to patient medical records.</p>
<p><strong>Patient:</strong> %s<br><strong>Date of Birth:</strong> %s</p>
<p>Use this OTP to access the patient file:</p>
<div style="font-size:24px;font-weight:bold">%s</div>
<p>This OTP is valid for one-time use only.</p>
<p>Confidentiality Notice: This email contains protected health information.</p>
</body></html>`, patient.FullName, patient.DateOfBirth, code)
	return subject, text, html
}

func patientCreatedMail(username string, patient *model.Patient, code string) (subject, text, html string) {
	subject = "Secure Health - Patient Record Created Successfully"
	text = fmt.Sprintf(`Hello %s,

Your patient record has been successfully created.

Patient: %s
Date of Birth: %s

Your OTP to access this patient file: %s

Use this OTP when you need to access the PDF file.

Thank you,
Secure Health Team`, username, patient.FullName, patient.DateOfBirth, code)
	html = fmt.Sprintf(`<html><body>
<h1>Secure Health</h1>
<h2>Hello %s,</h2>
<p>Your patient medical record has been successfully created and stored securely in our system.</p>
<p><strong>Patient:</strong> %s<br><strong>Date of Birth:</strong> %s</p>
<p>Your OTP to access the patient's PDF file:</p>
<div style="font-size:24px;font-weight:bold">%s</div>
<p><small>This OTP is valid for one-time use only</small></p>
<p>&copy; 2026 Secure Health. All rights reserved.</p>
</body></html>`, username, patient.FullName, patient.DateOfBirth, code)
	return subject, text, html
}
