package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"attendance-tracker/backend/internal/client"
	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/internal/registry"
	"attendance-tracker/backend/internal/session"
	"attendance-tracker/backend/internal/stats"
	"attendance-tracker/backend/pkg/apperr"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const msgRelogin = "登录已过期，请执行 attendctl login 重新登录"

// backend attendctl 用到的远端操作
type backend interface {
	Register(ctx context.Context, name, email, password string) (client.Credentials, error)
	Login(ctx context.Context, email, password string) (client.Credentials, error)
	Logout(ctx context.Context) error
	registry.Store
	session.Store
	ExportWorkbook(ctx context.Context) ([]byte, error)
	ExportCalendar(ctx context.Context, subjectID string) ([]byte, error)
}

type commandLine struct {
	out        io.Writer
	credsPath  string
	logger     *zap.Logger
	newBackend func(creds client.Credentials) backend
	now        func() time.Time
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  register -name NAME -email EMAIL          - 注册账号，密码随后输入")
	fmt.Fprintln(cli.out, "  login -email EMAIL                        - 登录，密码随后输入")
	fmt.Fprintln(cli.out, "  logout                                    - 退出登录")
	fmt.Fprintln(cli.out, "  subjects                                  - 列出科目及出勤率")
	fmt.Fprintln(cli.out, "  add -name NAME                            - 新建科目")
	fmt.Fprintln(cli.out, "  remove -subject ID                        - 删除科目及其全部出勤记录")
	fmt.Fprintln(cli.out, "  history -subject ID                       - 查看出勤历史")
	fmt.Fprintln(cli.out, "  mark -subject ID [-date YYYY-MM-DD] -status present|absent")
	fmt.Fprintln(cli.out, "                                            - 记录出勤，日期默认今天")
	fmt.Fprintln(cli.out, "  delete -subject ID -record ID             - 删除一条出勤记录")
	fmt.Fprintln(cli.out, "  stats                                     - 出勤统计概览")
	fmt.Fprintln(cli.out, "  export -o FILE [-subject ID]              - 导出 Excel，指定科目时导出 .ics 日历")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	if cli.now == nil {
		cli.now = time.Now
	}
	ctx := context.Background()

	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerName := registerCmd.String("name", "", "显示名称")
	registerEmail := registerCmd.String("email", "", "登录邮箱")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "登录邮箱")

	addCmd := flag.NewFlagSet("add", flag.ContinueOnError)
	addName := addCmd.String("name", "", "科目名称")

	removeCmd := flag.NewFlagSet("remove", flag.ContinueOnError)
	removeSubject := removeCmd.String("subject", "", "科目 ID")

	historyCmd := flag.NewFlagSet("history", flag.ContinueOnError)
	historySubject := historyCmd.String("subject", "", "科目 ID")

	markCmd := flag.NewFlagSet("mark", flag.ContinueOnError)
	markSubject := markCmd.String("subject", "", "科目 ID")
	markDate := markCmd.String("date", "", "日期 YYYY-MM-DD，默认今天")
	markStatus := markCmd.String("status", "", "present 或 absent")

	deleteCmd := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteSubject := deleteCmd.String("subject", "", "科目 ID")
	deleteRecord := deleteCmd.String("record", "", "出勤记录 ID")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportOut := exportCmd.String("o", "", "输出文件路径")
	exportSubject := exportCmd.String("subject", "", "科目 ID；指定时导出该科目的 .ics 日历")

	for _, fs := range []*flag.FlagSet{registerCmd, loginCmd, addCmd, removeCmd, historyCmd, markCmd, deleteCmd, exportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *registerName == "" || *registerEmail == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.register(ctx, *registerName, *registerEmail, pwd)

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, pwd)

	case "logout":
		return cli.logout(ctx)

	case "subjects":
		return cli.listSubjects(ctx)

	case "add":
		if err := addCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.addSubject(ctx, *addName)

	case "remove":
		if err := removeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *removeSubject == "" {
			removeCmd.Usage()
			return errHelp
		}
		return cli.removeSubject(ctx, *removeSubject)

	case "history":
		if err := historyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *historySubject == "" {
			historyCmd.Usage()
			return errHelp
		}
		return cli.history(ctx, *historySubject)

	case "mark":
		if err := markCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *markSubject == "" || *markStatus == "" {
			markCmd.Usage()
			return errHelp
		}
		return cli.mark(ctx, *markSubject, *markDate, model.AttendanceStatus(*markStatus))

	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteSubject == "" || *deleteRecord == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.deleteRecord(ctx, *deleteSubject, *deleteRecord)

	case "stats":
		return cli.stats(ctx)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *exportOut, *exportSubject)

	default:
		cli.printUsage()
		return errHelp
	}
}

// ────────────────────── 认证 ──────────────────────

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", apperr.Validation("密码不能为空")
	}
	return string(pwd), nil
}

func (cli *commandLine) register(ctx context.Context, name, email, password string) error {
	creds, err := cli.newBackend(client.Credentials{}).Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	if err := saveCredentials(cli.credsPath, creds); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "注册成功，欢迎 %s\n", creds.Name)
	return nil
}

func (cli *commandLine) login(ctx context.Context, email, password string) error {
	creds, err := cli.newBackend(client.Credentials{}).Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := saveCredentials(cli.credsPath, creds); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "已登录：%s\n", creds.Name)
	return nil
}

// logout 通知服务端吊销令牌；无论服务端结果如何都删除本地凭证
func (cli *commandLine) logout(ctx context.Context) error {
	creds, err := loadCredentials(cli.credsPath)
	if err != nil {
		return err
	}
	if creds.Valid() {
		if err := cli.newBackend(creds).Logout(ctx); err != nil {
			cli.logger.Warn("服务端退出登录失败", zap.Error(err))
		}
	}
	if err := removeCredentials(cli.credsPath); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "已退出登录")
	return nil
}

// authed 加载凭证并构造远端；未登录时直接返回 AuthError
func (cli *commandLine) authed() (backend, error) {
	creds, err := loadCredentials(cli.credsPath)
	if err != nil {
		return nil, err
	}
	if !creds.Valid() {
		return nil, apperr.New(apperr.KindAuth, msgRelogin)
	}
	return cli.newBackend(creds), nil
}

// ────────────────────── 科目 ──────────────────────

func (cli *commandLine) listSubjects(ctx context.Context) error {
	be, err := cli.authed()
	if err != nil {
		return err
	}
	reg := registry.New(be, cli.logger)
	if err := reg.Refresh(ctx); err != nil {
		return err
	}
	subjects := reg.Subjects()
	if len(subjects) == 0 {
		fmt.Fprintln(cli.out, "暂无科目，使用 attendctl add -name NAME 新建")
		return nil
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t科目\t出勤/总课时\t出勤率\t等级")
	for _, s := range subjects {
		p := stats.PercentageOf(s.AttendedClasses, s.TotalClasses)
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d%%\t%s\n", s.ID, s.Name, s.AttendedClasses, s.TotalClasses, p, stats.Classify(p).Category)
	}
	return w.Flush()
}

func (cli *commandLine) addSubject(ctx context.Context, name string) error {
	be, err := cli.authed()
	if err != nil {
		return err
	}
	created, err := registry.New(be, cli.logger).Create(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "已新建科目 %s (%s)\n", created.Name, created.ID)
	return nil
}

func (cli *commandLine) removeSubject(ctx context.Context, subjectID string) error {
	be, err := cli.authed()
	if err != nil {
		return err
	}
	if err := registry.New(be, cli.logger).Delete(ctx, subjectID); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "科目已删除")
	return nil
}

// ────────────────────── 出勤 ──────────────────────

// openSession 打开科目会话，关闭时由科目缓存刷新计数。
// needHistory 为 false 时历史加载失败只记日志，会话照常可用；AuthError 总是返回。
func (cli *commandLine) openSession(ctx context.Context, subjectID string, needHistory bool) (*session.Session, *registry.Registry, error) {
	be, err := cli.authed()
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(be, cli.logger)
	sess := session.New(be, reg, session.WithLogger(cli.logger), session.WithClock(cli.now))
	if err := sess.Open(ctx, subjectID); err != nil {
		if needHistory || apperr.IsAuth(err) {
			sess.Close(ctx)
			return nil, nil, err
		}
		cli.logger.Warn("加载出勤历史失败，继续执行", zap.String("subject_id", subjectID), zap.Error(err))
	}
	return sess, reg, nil
}

func (cli *commandLine) history(ctx context.Context, subjectID string) error {
	sess, _, err := cli.openSession(ctx, subjectID, true)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	records := sess.History()
	if len(records) == 0 {
		fmt.Fprintln(cli.out, "暂无出勤记录")
		return nil
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t日期\t状态")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Date.Format(model.DateLayout), statusLabel(r.Status))
	}
	return w.Flush()
}

func (cli *commandLine) mark(ctx context.Context, subjectID, date string, status model.AttendanceStatus) error {
	sess, reg, err := cli.openSession(ctx, subjectID, false)
	if err != nil {
		return err
	}
	if date != "" {
		d, err := model.ParseDate(date)
		if err != nil {
			sess.Close(ctx)
			return apperr.Validation("日期格式应为 YYYY-MM-DD")
		}
		if err := sess.SelectDate(d); err != nil {
			sess.Close(ctx)
			return err
		}
	}

	markErr := sess.Mark(ctx, status)
	cli.printNotice(sess)
	sess.Close(ctx)
	if markErr != nil {
		return markErr
	}
	cli.printSubjectLine(reg, subjectID)
	return nil
}

func (cli *commandLine) deleteRecord(ctx context.Context, subjectID, recordID string) error {
	sess, reg, err := cli.openSession(ctx, subjectID, false)
	if err != nil {
		return err
	}
	deleteErr := sess.Delete(ctx, recordID)
	cli.printNotice(sess)
	sess.Close(ctx)
	if deleteErr != nil {
		return deleteErr
	}
	cli.printSubjectLine(reg, subjectID)
	return nil
}

// printNotice 仅输出成功提示；失败提示由 main 统一输出
func (cli *commandLine) printNotice(sess *session.Session) {
	if n, ok := sess.Notice(cli.now()); ok && n.Kind == session.NoticeSuccess {
		fmt.Fprintln(cli.out, n.Message)
	}
}

func (cli *commandLine) printSubjectLine(reg *registry.Registry, subjectID string) {
	s, ok := reg.Get(subjectID)
	if !ok {
		return
	}
	p := stats.PercentageOf(s.AttendedClasses, s.TotalClasses)
	fmt.Fprintf(cli.out, "%s：%d/%d，出勤率 %d%%（%s）\n", s.Name, s.AttendedClasses, s.TotalClasses, p, stats.Classify(p).Category)
}

// ────────────────────── 统计与导出 ──────────────────────

func (cli *commandLine) stats(ctx context.Context) error {
	be, err := cli.authed()
	if err != nil {
		return err
	}
	reg := registry.New(be, cli.logger)
	if err := reg.Refresh(ctx); err != nil {
		return err
	}
	d := reg.Dashboard()

	fmt.Fprintf(cli.out, "科目数：%d  总课时：%d  出勤：%d  整体出勤率：%d%%\n",
		d.Summary.TotalSubjects, d.Summary.TotalClasses, d.Summary.AttendedClasses, d.Summary.OverallPercentage)
	if len(d.BarSeries) == 0 {
		return nil
	}

	fmt.Fprintln(cli.out)
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	for _, p := range d.BarSeries {
		fmt.Fprintf(w, "%s\t%s\t%d%%\n", p.Name, bar(p.Percentage), p.Percentage)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cli.out)
	for _, c := range d.Distribution {
		fmt.Fprintf(cli.out, "%s: %d\n", c.Label, c.Count)
	}
	return nil
}

func (cli *commandLine) export(ctx context.Context, path, subjectID string) error {
	be, err := cli.authed()
	if err != nil {
		return err
	}
	var data []byte
	if subjectID != "" {
		data, err = be.ExportCalendar(ctx, subjectID)
	} else {
		data, err = be.ExportWorkbook(ctx)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入导出文件失败: %w", err)
	}
	fmt.Fprintf(cli.out, "已导出到 %s\n", path)
	return nil
}

// ── 辅助函数 ──

func statusLabel(s model.AttendanceStatus) string {
	if s == model.AttendancePresent {
		return "出勤"
	}
	return "缺勤"
}

// bar 每 5% 一格
func bar(percentage int) string {
	n := percentage / 5
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n)
}

// userMessage 面向终端用户的错误文本
func userMessage(err error) string {
	if apperr.IsAuth(err) {
		return msgRelogin
	}
	if msg := apperr.MessageOf(err); msg != "" {
		return msg
	}
	return err.Error()
}
